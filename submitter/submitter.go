// Package submitter holds the state of a contact form and submits it to the
// site backend.
//
// A Form carries the field values the visitor typed and a busy flag. Submit
// sends the current values once, maps the outcome to a Toast and clears the
// fields only when the backend accepted the message. Failures never escape as
// errors: they become destructive toasts.
package submitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const contactEndpoint = "/api/contact"

const (
	SuccessTitle    = "Message Sent!"
	FailureTitle    = "Error"
	FallbackFailure = "Failed to send message. Please try again."
)

// ErrBusy is returned by Submit while an earlier submission is in flight.
var ErrBusy = errors.New("submission already in progress")

// Message is the payload posted to the contact endpoint.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Message string `json:"message"`
}

// HTTPClient is the subset of *http.Client used by Form.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ValidationError lists the required fields that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid contact form: " + strings.Join(e.Fields, ", ")
}

// Form is a single contact form instance.
type Form struct {
	baseURL  string
	client   HTTPClient
	notifier Notifier
	logger   zerolog.Logger

	mu     sync.Mutex
	values Message

	busy atomic.Bool
}

// Option configures a Form.
type Option func(*Form)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(c HTTPClient) Option {
	return func(f *Form) { f.client = c }
}

// WithNotifier sets where toasts are delivered.
func WithNotifier(n Notifier) Option {
	return func(f *Form) { f.notifier = n }
}

// WithLogger sets the logger used for failed submissions.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Form) { f.logger = l }
}

// New returns an empty form posting to baseURL.
func New(baseURL string, opts ...Option) *Form {
	f := &Form{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   http.DefaultClient,
		notifier: nopNotifier{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Set updates one field by its form name.
func (f *Form) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case "name":
		f.values.Name = value
	case "email":
		f.values.Email = value
	case "company":
		f.values.Company = value
	case "message":
		f.values.Message = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// Fill replaces all field values.
func (f *Form) Fill(m Message) {
	f.mu.Lock()
	f.values = m
	f.mu.Unlock()
}

// Values returns a copy of the current field values.
func (f *Form) Values() Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Submitting reports whether a submission is in flight.
func (f *Form) Submitting() bool {
	return f.busy.Load()
}

// Validate checks the required fields the way the browser form does.
func (f *Form) Validate() error {
	return validate(f.Values())
}

func validate(m Message) error {
	var missing []string
	if strings.TrimSpace(m.Name) == "" {
		missing = append(missing, "name")
	}
	if !validEmail(m.Email) {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(m.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1
}

// Submit posts the current values once.
//
// It returns ErrBusy without doing anything when a submission is already in
// flight, and a *ValidationError when required fields are empty. In every
// other case the returned error is nil and the toast carries the outcome.
func (f *Form) Submit(ctx context.Context) (Toast, error) {
	if !f.busy.CompareAndSwap(false, true) {
		return Toast{}, ErrBusy
	}
	defer f.busy.Store(false)

	msg := f.Values()
	if err := validate(msg); err != nil {
		return Toast{}, err
	}

	reply, err := f.post(ctx, msg)
	if err != nil {
		f.logger.Error().Err(err).Str("email", msg.Email).Msg("contact submission failed")
		toast := Toast{Title: FailureTitle, Description: failureDetail(err), Variant: VariantDestructive}
		f.notifier.Notify(toast)
		return toast, nil
	}

	f.mu.Lock()
	f.values = Message{}
	f.mu.Unlock()

	toast := Toast{Title: SuccessTitle, Description: reply.Message, Variant: VariantDefault}
	f.notifier.Notify(toast)
	return toast, nil
}

// Reply is the body of a successful contact response.
type Reply struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	SubmittedAt string `json:"submitted_at"`
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

func failureDetail(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return FallbackFailure
}

func (f *Form) post(ctx context.Context, msg Message) (*Reply, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+contactEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Detail: detailFrom(respBody)}
	}

	// Any 2xx is a success. The reply body is optional.
	var reply Reply
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &reply); err != nil {
			f.logger.Debug().Err(err).Int("status", resp.StatusCode).Msg("ignoring undecodable success body")
			reply = Reply{}
		}
	}
	return &reply, nil
}

// detailFrom extracts a string "detail" field. Structured details (such as
// lists of validation problems) are ignored so the fallback text is shown.
func detailFrom(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
