package httpserver

import (
	"net/http"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/httpserver/helpers"
	"github.com/labstack/echo/v4"
)

// The voter email endpoints always answer 200 with a JSON body; failures are reported through
// the status trail and success flag.

func (s *Server) retrieveEmailAddresses(c echo.Context) error {
	res := s.voterEmails.RetrieveEmailAddresses(c.Request().Context(), helpers.DeviceID(c))
	return c.JSON(http.StatusOK, res)
}

func (s *Server) signInWithSecretKey(c echo.Context) error {
	res := s.voterEmails.SignInWithSecretKey(c.Request().Context(), helpers.DeviceID(c), helpers.Param(c, "email_secret_key"))
	return c.JSON(http.StatusOK, res)
}

func (s *Server) verifyEmailWithSecretKey(c echo.Context) error {
	res := s.voterEmails.VerifyEmailWithSecretKey(c.Request().Context(), helpers.DeviceID(c), helpers.Param(c, "email_secret_key"))
	return c.JSON(http.StatusOK, res)
}

func (s *Server) saveEmailAddress(c echo.Context) error {
	emailID, err := helpers.UUIDParam(c, "email_we_vote_id")
	if err != nil {
		return err
	}
	req := &email.SaveRequest{
		DeviceID:                helpers.DeviceID(c),
		EmailText:               helpers.Param(c, "text_for_email_address"),
		EmailID:                 emailID,
		SendLinkToSignIn:        helpers.BoolParam(c, "send_link_to_sign_in"),
		SendSignInCode:          helpers.BoolParam(c, "send_sign_in_code_email"),
		ResendVerificationEmail: helpers.BoolParam(c, "resend_verification_email"),
		ResendVerificationCode:  helpers.BoolParam(c, "resend_verification_code_email"),
		MakePrimary:             helpers.BoolParam(c, "make_primary_email"),
		Delete:                  helpers.BoolParam(c, "delete_email"),
		IsCordova:               helpers.BoolParam(c, "is_cordova"),
		WebAppRootURL:           helpers.Param(c, "web_app_root_url"),
	}
	return c.JSON(http.StatusOK, s.voterEmails.SaveEmailAddress(c.Request().Context(), req))
}
