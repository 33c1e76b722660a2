package web

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/template/html"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	embedded "github.com/goserg/memberportal"
	"github.com/goserg/memberportal/auth/gate"
	authservice "github.com/goserg/memberportal/auth/service"
	"github.com/goserg/memberportal/auth/session"
	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/internal/config"
	"github.com/goserg/memberportal/internal/metrics"
	"github.com/goserg/memberportal/internal/web/webpath"
)

const layout = "layouts/main"

var memberImages = []string{"img1.svg", "img2.svg", "img3.svg"}

type Server struct {
	auth    *authservice.Service
	gate    *gate.Gate
	metrics *metrics.Metrics
	app     *fiber.App
	cfg     config.Server
	log     *logrus.Entry
}

func New(cfg config.Server, authService *authservice.Service, g *gate.Gate, mt *metrics.Metrics, l *logrus.Logger) (*Server, error) {
	server := Server{
		auth:    authService,
		gate:    g,
		metrics: mt,
		cfg:     cfg,
		log: l.WithFields(map[string]interface{}{
			"from": "web",
		}),
	}

	viewsFS, err := fs.Sub(embedded.Views, "views")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(viewsFS), ".html")
	engine.Reload(cfg.Debug)
	engine.Debug(cfg.Debug)
	engine.AddFunc("FormatDate", formatDate)
	engine.AddFunc("PromotePath", webpath.Promote)
	engine.AddFunc("DemotePath", webpath.Demote)

	publicFS, err := fs.Sub(embedded.Public, "public")
	if err != nil {
		return nil, err
	}

	// Form values end up as map keys and records in the storage, so they
	// must not alias fasthttp's reused request buffer.
	app := fiber.New(fiber.Config{
		Immutable:             true,
		Views:                 engine,
		ErrorHandler:          server.handleError,
		DisableStartupMessage: !cfg.Debug,
	})

	app.Get(webpath.Home, server.require(gate.Public), server.handleHome)
	app.Get(webpath.Signup, server.require(gate.Public), server.handleGetSignup)
	app.Post(webpath.Signup, server.handlePostSignup)
	app.Get(webpath.Login, server.require(gate.Public), server.handleGetLogin)
	app.Post(webpath.Login, server.handlePostLogin)
	app.Post(webpath.AdminLogin, server.handlePostAdminLogin)
	app.Get(webpath.Logout, server.handleLogout)

	app.Get(webpath.Members, server.require(gate.AuthenticatedAny), server.handleMembers)

	app.Get(webpath.Admin, server.require(gate.AuthenticatedAdmin), server.handleAdmin)
	app.Get(webpath.AdminPromote, server.require(gate.AuthenticatedAdmin), server.handlePromote)
	app.Get(webpath.AdminDemote, server.require(gate.AuthenticatedAdmin), server.handleDemote)

	app.Get(webpath.Metrics, adaptor.HTTPHandler(mt.Handler()))
	app.Use(webpath.Static, filesystem.New(filesystem.Config{
		Root: http.FS(publicFS),
	}))
	app.Use(server.require(gate.Public), server.handleNotFound)

	server.app = app
	return &server, nil
}

func (s *Server) Serve() error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	s.log.WithFields(logrus.Fields{"addr": addr, "tls": s.cfg.TLS()}).Info("listening")
	if s.cfg.TLS() {
		return s.app.ListenTLS(addr, s.cfg.CertFile, s.cfg.KeyFile)
	}
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleHome(c *fiber.Ctx) error {
	return c.Render("index", newPage("Admin login", identityFrom(c)), layout)
}

func (s *Server) handleGetSignup(c *fiber.Ctx) error {
	return c.Render("signup", newPage("Sign up", identityFrom(c)), layout)
}

func (s *Server) handlePostSignup(c *fiber.Ctx) error {
	req, err := parseSignupRequest(c)
	if err != nil {
		return err
	}
	token, sess, err := s.auth.SignUp(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return s.renderFormError(c, "signup", newPage("Sign up", identityFrom(c)).With("Form", req), err)
	}
	s.setSession(c, token, sess)
	return c.Redirect(webpath.Members, fiber.StatusSeeOther)
}

func (s *Server) handleGetLogin(c *fiber.Ctx) error {
	return c.Render("login", newPage("Log in", identityFrom(c)), layout)
}

func (s *Server) handlePostLogin(c *fiber.Ctx) error {
	req, err := parseLoginRequest(c)
	if err != nil {
		return err
	}
	token, sess, err := s.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.renderFormError(c, "login", newPage("Log in", identityFrom(c)).With("Email", req.Email), err)
	}
	s.setSession(c, token, sess)
	return c.Redirect(webpath.Members, fiber.StatusSeeOther)
}

func (s *Server) handlePostAdminLogin(c *fiber.Ctx) error {
	req, err := parseLoginRequest(c)
	if err != nil {
		return err
	}
	token, sess, err := s.auth.AdminLogin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.renderFormError(c, "index", newPage("Admin login", identityFrom(c)).With("Email", req.Email), err)
	}
	s.setSession(c, token, sess)
	return c.Redirect(webpath.Admin, fiber.StatusSeeOther)
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	if err := s.auth.Logout(c.UserContext(), c.Cookies(cookieName)); err != nil {
		return err
	}
	s.clearSession(c)
	return c.Redirect(webpath.Home, fiber.StatusSeeOther)
}

func (s *Server) handleMembers(c *fiber.Ctx) error {
	return c.Render("members", newPage("Members", identityFrom(c)).
		With("Images", memberImages), layout)
}

func (s *Server) handleAdmin(c *fiber.Ctx) error {
	caller := identityFrom(c)
	list, err := s.auth.ListUsers(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.Render("admin", newPage("Admin", caller).
		With("Users", list), layout)
}

func (s *Server) handlePromote(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return storage.ErrNotFound
	}
	if err := s.auth.Promote(c.UserContext(), identityFrom(c), id); err != nil {
		return err
	}
	return c.Redirect(webpath.Admin, fiber.StatusSeeOther)
}

func (s *Server) handleDemote(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return storage.ErrNotFound
	}
	if err := s.auth.Demote(c.UserContext(), identityFrom(c), id); err != nil {
		return err
	}
	return c.Redirect(webpath.Admin, fiber.StatusSeeOther)
}

func (s *Server) handleNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).Render("404", newPage("Not found", identityFrom(c)), layout)
}

// renderFormError shows err on the form view when it is a user error and
// passes anything else on to handleError.
func (s *Server) renderFormError(c *fiber.Ctx, view string, p page, err error) error {
	status, messages, ok := formError(err)
	if !ok {
		return err
	}
	return c.Status(status).Render(view, p.WithErrors(messages...), layout)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		return c.Redirect(webpath.Login, fiber.StatusSeeOther)
	case errors.Is(err, authservice.ErrForbidden):
		return s.renderError(c, fiber.StatusForbidden, "You are not authorized.")
	case errors.Is(err, storage.ErrNotFound):
		return s.renderNotFound(c)
	case errors.As(err, &fe) && fe.Code == fiber.StatusNotFound:
		return s.renderNotFound(c)
	case errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError:
		return s.renderError(c, fe.Code, http.StatusText(fe.Code))
	}
	s.log.WithError(err).WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error("request failed")
	return s.renderError(c, fiber.StatusInternalServerError, "Something went wrong.")
}

func (s *Server) renderNotFound(c *fiber.Ctx) error {
	err := c.Status(fiber.StatusNotFound).Render("404", newPage("Not found", identityFrom(c)), layout)
	if err != nil {
		return c.SendString(http.StatusText(fiber.StatusNotFound))
	}
	return nil
}

func (s *Server) renderError(c *fiber.Ctx, status int, message string) error {
	err := c.Status(status).Render("error", newPage("Error", identityFrom(c)).
		With("Message", message), layout)
	if err != nil {
		s.log.WithError(err).Error("render error page")
		return c.SendString(message)
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
