package server

import (
	"github.com/jrsteele09/sade-booster/view"
)

// pageData is shared by every page
type pageData struct {
	AppName string
	Error   string
}

type loginPage struct {
	pageData
	Email  string
	Notice string
}

type signupPage struct {
	pageData
	Signup view.SignupView
}

type dashboardPage struct {
	pageData
	Dashboard view.DashboardView
}

func (s *Server) page(errorMsg string) pageData {
	return pageData{AppName: s.config.GetAppName(), Error: errorMsg}
}
