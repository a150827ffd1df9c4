package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-wellness-portal/api"
	"github.com/jrsteele09/go-wellness-portal/internal/utils"
)

func (s *Server) HomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.session.Snapshot()
		s.render(w, http.StatusOK, "home", pageData{
			Title: s.config.GetAppName(),
			User:  snap.User,
		})
	}
}

func (s *Server) AccountPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.session.Snapshot()
		s.render(w, http.StatusOK, "account", pageData{
			Title:  "Your account",
			Notice: r.URL.Query().Get("notice"),
			Error:  r.URL.Query().Get("error"),
			User:   snap.User,
		})
	}
}

// profileFields maps form field names onto the update payload. Only fields
// present in the submission are sent, so untouched values stay untouched
// server-side.
func profileUpdateFromForm(form url.Values) api.ProfileUpdate {
	var update api.ProfileUpdate
	assign := map[string]**string{
		"firstName": &update.FirstName,
		"lastName":  &update.LastName,
		"phone":     &update.Phone,
		"city":      &update.City,
		"address":   &update.Address,
		"bio":       &update.Bio,
	}
	for field, target := range assign {
		if form.Has(field) {
			*target = utils.Ptr(form.Get(field))
		}
	}
	return update
}

func (s *Server) AccountUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		if _, err := s.session.UpdateProfile(r.Context(), profileUpdateFromForm(r.PostForm)); err != nil {
			s.log.Debug().Err(err).Msg("profile update rejected")
			redirectWithError(w, r, RouteAccount, api.Message(err))
			return
		}

		http.Redirect(w, r, RouteAccount+"?notice="+url.QueryEscape("Profile updated"), http.StatusSeeOther)
	}
}

const maxPictureUploadBytes = 5 << 20

func (s *Server) AccountPictureHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxPictureUploadBytes); err != nil {
			http.Error(w, "invalid upload", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("picture")
		if err != nil {
			redirectWithError(w, r, RouteAccount, "Choose a picture to upload")
			return
		}
		defer file.Close()

		if _, err := s.session.UpdateProfilePicture(r.Context(), header.Filename, file); err != nil {
			s.log.Debug().Err(err).Msg("profile picture rejected")
			redirectWithError(w, r, RouteAccount, api.Message(err))
			return
		}

		http.Redirect(w, r, RouteAccount+"?notice="+url.QueryEscape("Picture updated"), http.StatusSeeOther)
	}
}

func (s *Server) ModerationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, "moderation", pageData{
			Title: "Moderation",
			User:  s.session.Snapshot().User,
		})
	}
}

func (s *Server) ManagementHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, "management", pageData{
			Title: "Management",
			User:  s.session.Snapshot().User,
		})
	}
}

func (s *Server) AccessDeniedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusForbidden, "denied", pageData{Title: "Access denied"})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
