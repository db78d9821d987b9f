package server

// Route path constants
const (
	RouteIndex = "/"

	// Sign in & out
	RouteLogin      = "/login"
	RouteAuthLogout = "/auth/logout"

	// Registration
	RouteSignup        = "/signup"
	RouteSignupConfirm = "/signup/confirm"
	RouteSignupRestart = "/signup/restart"

	// Dashboard
	RouteDashboard     = "/dashboard"
	RouteProfileEdit   = "/dashboard/profile/edit"
	RouteProfileCancel = "/dashboard/profile/cancel"
	RouteProfile       = "/dashboard/profile"
	RouteSessionEvents = "/dashboard/events"

	// API Routes
	RouteAPISession = "/api/session"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
	RouteStaticJS  = "/js/{file}"
)

// Template files
const (
	pageLogin     = "login.html"
	pageSignup    = "signup.html"
	pageDashboard = "dashboard.html"
	pageLoading   = "loading.html"
)
