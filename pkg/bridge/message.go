// Package bridge interprets messages posted by embedded guest web content
// and builds the host-to-guest session hand-off.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Actions understood by Handle.
const (
	ActionGoBack      = "goBack"
	ActionNavigate    = "navigate"
	ActionData        = "data"
	ActionDownloadPDF = "downloadPDF"
)

// legacyActions maps values of the old "type" field to actions.
var legacyActions = map[string]string{
	"close":      ActionGoBack,
	"navigation": ActionNavigate,
}

// ErrMalformed is returned by Parse for input that is not a JSON object.
var ErrMalformed = errors.New("bridge: malformed message")

// Message is one parsed guest message: GoBack, Navigate, Data, DownloadPDF
// or Custom.
type Message interface {
	Action() string
}

// GoBack asks the host to leave the guest view.
type GoBack struct{}

// Navigate asks the host to open Route.
type Navigate struct {
	Route string
}

// Data carries an arbitrary payload for the host.
type Data struct {
	Payload json.RawMessage
}

// DownloadPDF asks the host to save and share a PDF. Inline holds legacy
// base64 content; when empty, Filename is a remote path or URL.
type DownloadPDF struct {
	Filename string
	Inline   string
}

// Custom is any other action. Raw is the whole message.
type Custom struct {
	Name string
	Raw  json.RawMessage
}

// Action implements Message.
func (GoBack) Action() string { return ActionGoBack }

// Action implements Message.
func (Navigate) Action() string { return ActionNavigate }

// Action implements Message.
func (Data) Action() string { return ActionData }

// Action implements Message.
func (DownloadPDF) Action() string { return ActionDownloadPDF }

// Action implements Message.
func (c Custom) Action() string { return c.Name }

// Parse decodes raw into a Message. The action comes from "action",
// falling back to the legacy "type" field. Fields of the wrong JSON type are
// treated as absent.
func Parse(raw string) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: null", ErrMalformed)
	}

	action := stringField(fields, "action")
	if action == "" {
		action = stringField(fields, "type")
	}
	if mapped, ok := legacyActions[action]; ok {
		action = mapped
	}

	switch action {
	case ActionGoBack:
		return GoBack{}, nil
	case ActionNavigate:
		return Navigate{Route: stringField(fields, "route")}, nil
	case ActionData:
		return Data{Payload: fields["data"]}, nil
	case ActionDownloadPDF:
		return DownloadPDF{
			Filename: stringField(fields, "filename"),
			Inline:   stringField(fields, "data"),
		}, nil
	default:
		return Custom{Name: action, Raw: json.RawMessage(raw)}, nil
	}
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
