//go:build js && wasm

// Command resetform-wasm binds the password reset form controller to the
// page served at /api/auth/reset_password_confirmation/. Build it with
// GOOS=js GOARCH=wasm and serve it as /static/resetform.wasm.
package main

import (
	"context"
	"os"
	"syscall/js"

	"github.com/rs/zerolog"

	"github.com/eswan18/passwordreset/pkg/resetform"
)

type domForm struct {
	password1, password2 js.Value
}

func (f domForm) Passwords() (string, string) {
	return f.password1.Get("value").String(), f.password2.Get("value").String()
}

type domRegion struct {
	el js.Value
}

func (r domRegion) SetText(text string) {
	r.el.Set("textContent", text)
}

type domEvent struct {
	ev js.Value
}

func (e domEvent) PreventDefault() {
	e.ev.Call("preventDefault")
}

type domTarget struct {
	form js.Value
}

// OnSubmit registers listener for the form's submit event. The js.Func is
// never released; the binding lives as long as the page.
func (t domTarget) OnSubmit(listener func(resetform.Event)) {
	fn := js.FuncOf(func(this js.Value, args []js.Value) any {
		listener(domEvent{ev: args[0]})
		return nil
	})
	t.form.Call("addEventListener", "submit", fn)
}

func windowAlert(message string) {
	js.Global().Call("alert", message)
}

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "resetform-wasm").Logger()

	document := js.Global().Get("document")
	byID := func(id string) js.Value {
		el := document.Call("getElementById", id)
		if el.IsNull() {
			log.Error().Str("id", id).Msg("element not found")
		}
		return el
	}

	form := byID("password-form")
	password1 := byID("password1")
	password2 := byID("password2")
	successOutput := byID("success-output")
	errorOutput := byID("error-output")
	for _, el := range []js.Value{form, password1, password2, successOutput, errorOutput} {
		if el.IsNull() {
			return
		}
	}

	c, err := resetform.New(resetform.Config{
		Endpoint:      js.Global().Get("location").Get("href").String(),
		Form:          domForm{password1: password1, password2: password2},
		SuccessOutput: domRegion{el: successOutput},
		ErrorOutput:   domRegion{el: errorOutput},
		Alerter:       resetform.AlertFunc(windowAlert),
		Logger:        log,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to start reset form")
		return
	}
	c.Bind(context.Background(), domTarget{form: form})

	// Keep the Go runtime alive for event callbacks.
	select {}
}
