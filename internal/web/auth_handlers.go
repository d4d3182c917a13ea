package web

import (
	"net/http"
	"strings"

	"trading-journal-console/internal/backend"
)

type credentialsForm struct {
	Username string
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", Page{Title: "Login", Data: credentialsForm{}})
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	sess := sessionFrom(r)
	if err := s.deps.Auth.Login(r.Context(), sess, username, password); err != nil {
		message := "Invalid credentials"
		if backend.StatusOf(err) == 0 {
			message = "The trading journal API is unreachable."
		}
		s.render(w, r, http.StatusUnauthorized, "login", Page{
			Title: "Login",
			Flash: &Flash{Kind: flashError, Message: message},
			Data:  credentialsForm{Username: username},
		})
		return
	}
	s.redirect(w, r, "/")
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", Page{Title: "Create New User", Data: credentialsForm{}})
}

func (s *Server) registerSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if username == "" || password == "" {
		s.render(w, r, http.StatusUnprocessableEntity, "register", Page{
			Title: "Create New User",
			Flash: &Flash{Kind: flashError, Message: "Username and password are required"},
			Data:  credentialsForm{Username: username},
		})
		return
	}
	if err := s.deps.Auth.Register(r.Context(), username, password); err != nil {
		s.render(w, r, http.StatusOK, "register", Page{
			Title: "Create New User",
			Flash: &Flash{Kind: flashError, Message: "Failed to create user"},
			Data:  credentialsForm{Username: username},
		})
		return
	}
	s.setFlash(w, flashSuccess, "User created successfully")
	s.redirect(w, r, "/login")
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.deps.Auth.Logout(r.Context(), sessionFrom(r))
	s.redirect(w, r, "/login")
}
