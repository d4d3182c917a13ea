package web

import (
	"net/http"
	"net/mail"
	"strings"

	"trading-journal-console/internal/models"
)

// identity fetches the session user. On failure it has already answered.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (*models.Identity, bool) {
	identity, err := s.deps.Auth.GetIdentity(r.Context(), sessionFrom(r))
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, "Could not load your profile.")
		return nil, false
	}
	return identity, true
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	// The welcome line falls back to a generic name when /me fails.
	identity, _ := s.deps.Auth.GetIdentity(r.Context(), sessionFrom(r))
	s.render(w, r, http.StatusOK, "dashboard", Page{Title: "Dashboard", Nav: true, Identity: identity})
}

func (s *Server) profilePage(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "profile", Page{Title: "User Profile", Nav: true, Identity: identity})
}

type profileForm struct {
	Update models.IdentityUpdate
	Errors map[string]string
}

func (s *Server) profileEditPage(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	form := profileForm{Update: models.IdentityUpdate{
		Email:       identity.Email,
		FirstName:   identity.FirstName,
		LastName:    identity.LastName,
		Bio:         identity.Bio,
		AvatarURL:   identity.AvatarURL,
		PhoneNumber: identity.PhoneNumber,
		Timezone:    identity.Timezone,
	}}
	s.render(w, r, http.StatusOK, "profile_edit", Page{Title: "Edit Profile", Nav: true, Identity: identity, Data: form})
}

func (s *Server) profileEditSubmit(w http.ResponseWriter, r *http.Request) {
	update := models.IdentityUpdate{
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		FirstName:   strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:    strings.TrimSpace(r.PostFormValue("lastName")),
		Bio:         strings.TrimSpace(r.PostFormValue("bio")),
		AvatarURL:   strings.TrimSpace(r.PostFormValue("avatarUrl")),
		PhoneNumber: strings.TrimSpace(r.PostFormValue("phoneNumber")),
		Timezone:    strings.TrimSpace(r.PostFormValue("timezone")),
	}

	errs := map[string]string{}
	if update.Email != "" {
		if _, err := mail.ParseAddress(update.Email); err != nil {
			errs["email"] = "Invalid email address"
		}
	}
	if len(errs) > 0 {
		identity, _ := s.deps.Auth.GetIdentity(r.Context(), sessionFrom(r))
		s.render(w, r, http.StatusUnprocessableEntity, "profile_edit", Page{
			Title: "Edit Profile", Nav: true, Identity: identity,
			Data: profileForm{Update: update, Errors: errs},
		})
		return
	}

	if _, err := s.deps.Auth.UpdateIdentity(r.Context(), sessionFrom(r), update); err != nil {
		s.fail(w, r, err, "Failed to update profile", "/profile/edit")
		return
	}
	s.setFlash(w, flashSuccess, "Profile updated")
	s.redirect(w, r, "/profile")
}
