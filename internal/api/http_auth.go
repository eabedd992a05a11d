package api

import (
	"net/http"

	"cafe-pos-service/internal/access"
	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/identity"
)

// --- Auth Handlers ---

// CredentialsInput is the sign-in and sign-up form.
type CredentialsInput struct {
	Email       string `json:"email" validate:"required,email,max=320"`
	Password    string `json:"password" validate:"required,max=128"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
}

// GoogleSignInInput carries the ID token from the Google popup.
type GoogleSignInInput struct {
	IDToken string `json:"id_token" validate:"required"`
}

// SessionResponse is returned by every successful sign-in.
type SessionResponse struct {
	Token       string             `json:"token,omitempty"`
	Session     *domain.Session    `json:"session"`
	Permissions PermissionsPayload `json:"permissions"`
}

// PermissionsPayload tells the client which views to offer.
type PermissionsPayload struct {
	Mode          string `json:"mode"`
	CanBrowse     bool   `json:"can_browse"`
	CanMutateCart bool   `json:"can_mutate_cart"`
	CanFinalize   bool   `json:"can_finalize"`
	IsAdmin       bool   `json:"is_admin"`
	CanManage     bool   `json:"can_manage"`
}

func permissionsPayload(p access.Permissions) PermissionsPayload {
	return PermissionsPayload{
		Mode:          p.Mode.String(),
		CanBrowse:     p.CanBrowse(),
		CanMutateCart: p.CanMutateCart(),
		CanFinalize:   p.CanFinalize(),
		IsAdmin:       p.IsAdmin(),
		CanManage:     p.CanManage(),
	}
}

func (h *HTTPHandler) respondWithSession(w http.ResponseWriter, r *http.Request, code int, session *domain.Session, token string) {
	perms, err := h.gate.Permissions(r.Context(), session)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, code, SessionResponse{Token: token, Session: session, Permissions: permissionsPayload(perms)})
}

func (h *HTTPHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var input CredentialsInput
	if err := h.decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	session, token, err := h.sessions.SignUp(r.Context(), identity.Credentials{
		Email: input.Email, Password: input.Password, DisplayName: input.DisplayName,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.respondWithSession(w, r, http.StatusCreated, session, token)
}

func (h *HTTPHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var input CredentialsInput
	if err := h.decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	session, token, err := h.sessions.SignIn(r.Context(), identity.Credentials{Email: input.Email, Password: input.Password})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.respondWithSession(w, r, http.StatusOK, session, token)
}

func (h *HTTPHandler) SignInWithGoogle(w http.ResponseWriter, r *http.Request) {
	var input GoogleSignInInput
	if err := h.decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	session, token, err := h.sessions.SignInWithGoogle(r.Context(), input.IDToken, r.Header.Get("Origin"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.respondWithSession(w, r, http.StatusOK, session, token)
}

func (h *HTTPHandler) EnterGuest(w http.ResponseWriter, r *http.Request) {
	session, token, err := h.sessions.EnterGuest(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.respondWithSession(w, r, http.StatusOK, session, token)
}

// SignOut ends the session. Its cart and admin verification go with it.
func (h *HTTPHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(r.Context(), sessionFrom(r.Context())); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.respondWithSession(w, r, http.StatusOK, sessionFrom(r.Context()), "")
}

// --- Admin gate ---

// VerifyInput is the management re-authentication form.
type VerifyInput struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,max=128"`
}

func (h *HTTPHandler) VerifyAdmin(w http.ResponseWriter, r *http.Request) {
	var input VerifyInput
	if err := h.decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	session := sessionFrom(r.Context())
	if err := h.gate.Verify(r.Context(), session, input.Email, input.Password); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.respondWithSession(w, r, http.StatusOK, session, "")
}

// LeaveAdmin resets the verification when the management view is closed.
func (h *HTTPHandler) LeaveAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Leave(r.Context(), sessionFrom(r.Context())); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}
