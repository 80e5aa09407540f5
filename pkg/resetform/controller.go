// Package resetform drives the "choose a new password" form on a password
// reset page.
//
// The controller is host-agnostic. A host (the browser binding in
// cmd/resetform-wasm, or the terminal client in cmd/resetpw) supplies the
// form, two output regions and an alerter, and forwards submit events.
// On submit the controller checks that both passwords match and posts the
// new password as JSON to the page's own URL. It then shows one of two fixed
// messages depending on whether the server answered 200.
package resetform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

// User-visible messages.
const (
	MismatchMessage = "Passwords do not match!"
	SuccessMessage  = "Your password has been reset. Go ahead and login!"
	FailureMessage  = "Password token has expired or is already used! Try resetting your password again"
)

// Form exposes the two password inputs of the host page.
type Form interface {
	Passwords() (password1, password2 string)
}

// Region is a writable text container on the host page.
type Region interface {
	SetText(text string)
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(message string)
}

// Event is a form submission.
type Event interface {
	PreventDefault()
}

// SubmitTarget delivers submit events to a listener.
type SubmitTarget interface {
	OnSubmit(listener func(Event))
}

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds what a Controller needs from its host. Only Client and
// Logger are optional.
type Config struct {
	// Endpoint is the URL the new password is posted to, normally the
	// page's own location.
	Endpoint      string
	Form          Form
	SuccessOutput Region
	ErrorOutput   Region
	Alerter       Alerter
	// Client defaults to http.DefaultClient, which has no timeout.
	Client Doer
	Logger zerolog.Logger
}

// Controller handles submissions of one reset form.
type Controller struct {
	endpoint      string
	form          Form
	successOutput Region
	errorOutput   Region
	alerter       Alerter
	client        Doer
	log           zerolog.Logger
}

// New validates cfg and returns a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("resetform: endpoint is required")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("resetform: invalid endpoint: %w", err)
	}
	if cfg.Form == nil {
		return nil, errors.New("resetform: form is required")
	}
	if cfg.SuccessOutput == nil || cfg.ErrorOutput == nil {
		return nil, errors.New("resetform: both output regions are required")
	}
	if cfg.Alerter == nil {
		return nil, errors.New("resetform: alerter is required")
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Controller{
		endpoint:      cfg.Endpoint,
		form:          cfg.Form,
		successOutput: cfg.SuccessOutput,
		errorOutput:   cfg.ErrorOutput,
		alerter:       cfg.Alerter,
		client:        client,
		log:           cfg.Logger.With().Str("component", "resetform").Logger(),
	}, nil
}

// Bind subscribes the controller to target's submit events. Validation
// runs inside the listener; the request runs on its own goroutine so the
// host's event loop is never blocked. Overlapping submissions are not
// serialized and the last response to arrive owns the output regions.
func (c *Controller) Bind(ctx context.Context, target SubmitTarget) {
	target.OnSubmit(func(ev Event) {
		password, ok := c.validate(ev)
		if !ok {
			return
		}
		go c.submit(ctx, password)
	})
}

// HandleSubmit runs one submission to completion.
func (c *Controller) HandleSubmit(ctx context.Context, ev Event) Outcome {
	password, ok := c.validate(ev)
	if !ok {
		return OutcomeBlocked
	}
	return c.submit(ctx, password)
}

// validate suppresses the default action, reads both fields and either
// alerts on a mismatch or clears the output regions for a new attempt.
func (c *Controller) validate(ev Event) (string, bool) {
	ev.PreventDefault()

	password1, password2 := c.form.Passwords()
	if password1 != password2 {
		c.alerter.Alert(MismatchMessage)
		return "", false
	}

	c.successOutput.SetText("")
	c.errorOutput.SetText("")
	return password1, true
}

func (c *Controller) submit(ctx context.Context, password string) Outcome {
	if err := c.post(ctx, password); err != nil {
		c.log.Debug().Err(err).Str("endpoint", c.endpoint).Msg("password reset failed")
		c.handleError()
		return OutcomeFailed
	}
	c.handleSuccess()
	return OutcomeSucceeded
}

type resetRequest struct {
	Password string `json:"password"`
}

// post sends the new password. Any non-200 status, transport failure or
// undecodable body is an error; callers do not distinguish between them.
func (c *Controller) post(ctx context.Context, password string) error {
	body, err := json.Marshal(resetRequest{Password: password})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(raw) {
		return errors.New("decode response: body is not a single JSON value")
	}
	return nil
}

func (c *Controller) handleSuccess() {
	c.successOutput.SetText(SuccessMessage)
	c.errorOutput.SetText("")
}

func (c *Controller) handleError() {
	c.successOutput.SetText("")
	c.errorOutput.SetText(FailureMessage)
}

// StatusError reports a response other than 200 OK.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}
