package server

import (
	"log/slog"

	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/observability"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SignupPage renders the registration form.
func (s *Server) SignupPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/signup.html", fiber.Map{"Form": &forms.SignupForm{}})
}

// Signup creates the account, logs it in and redirects to the index.
func (s *Server) Signup(c *fiber.Ctx) error {
	ctx := c.UserContext()
	form := forms.BindSignupForm(c)
	ok, err := form.Validate(ctx, s.userService)
	if err != nil {
		return err
	}
	if !ok {
		return s.render(c, fiber.StatusOK, "users/signup.html", fiber.Map{"Form": form})
	}

	user, err := s.userService.Signup(ctx, form.Input())
	if err != nil {
		if form.Apply("username", err) {
			return s.render(c, fiber.StatusOK, "users/signup.html", fiber.Map{"Form": form})
		}
		return err
	}
	if err := s.sessions.Login(c, user); err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}

// LoginPage renders the login form, keeping the page to return to.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	form := &forms.LoginForm{Next: c.Query("next")}
	return s.render(c, fiber.StatusOK, "users/login.html", fiber.Map{"Form": form})
}

// Login checks the credentials and redirects to a local "next" or the index.
func (s *Server) Login(c *fiber.Ctx) error {
	form := forms.BindLoginForm(c)
	if !form.Validate() {
		return s.render(c, fiber.StatusOK, "users/login.html", fiber.Map{"Form": form})
	}

	user, err := s.userService.Authenticate(c.UserContext(), form.Username, form.Password)
	if err != nil {
		if form.Apply("", err) {
			return s.render(c, fiber.StatusOK, "users/login.html", fiber.Map{"Form": form})
		}
		return err
	}
	if err := s.sessions.Login(c, user); err != nil {
		return err
	}
	return c.Redirect(middleware.SafeNext(form.Next, "/"), fiber.StatusFound)
}

// Logout ends the session and renders the logged-out page.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.Logout(c); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "Failed to revoke session",
			slog.String("error", err.Error()),
		)
	}
	if middleware.CurrentUser(c) != nil {
		observability.AuthEvents.WithLabelValues("logout").Inc()
	}
	c.Locals(middleware.LocalUser, nil)
	c.Locals(middleware.LocalUserID, nil)
	return s.render(c, fiber.StatusOK, "users/logged_out.html", nil)
}

// PasswordChangePage renders the password change form.
func (s *Server) PasswordChangePage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/password_change_form.html", fiber.Map{"Form": &forms.PasswordChangeForm{}})
}

// PasswordChange replaces the password and issues a fresh session, since the old one is bound to
// the previous password.
func (s *Server) PasswordChange(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	form := forms.BindPasswordChangeForm(c)
	if !form.Validate(user, s.userService) {
		return s.render(c, fiber.StatusOK, "users/password_change_form.html", fiber.Map{"Form": form})
	}

	err := s.userService.ChangePassword(c.UserContext(), service.ChangePasswordInput{
		User:        user,
		OldPassword: form.OldPassword,
		NewPassword: form.NewPassword1,
	})
	if err != nil {
		if form.Apply("new_password2", err) {
			return s.render(c, fiber.StatusOK, "users/password_change_form.html", fiber.Map{"Form": form})
		}
		return err
	}
	if err := s.sessions.Login(c, user); err != nil {
		return err
	}
	return c.Redirect("/auth/password_change/done/", fiber.StatusFound)
}

// PasswordChangeDone confirms the change.
func (s *Server) PasswordChangeDone(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/password_change_done.html", nil)
}
