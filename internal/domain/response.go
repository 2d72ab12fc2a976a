package domain

import "net/http"

// Status texts carried in response bodies.
const (
	StatusMessageIgnored     = "Message event received but ignored"
	StatusReactionNotHandled = "Reaction not handled"
	StatusNotRecognized      = "Event not recognized"
	StatusAlreadyProcessed   = "Message already processed"
	StatusNotConfigured      = "Platform not configured"
	StatusChannelInfoFailed  = "Failed to retrieve channel info"
	StatusFetchFailed        = "Failed to fetch message"
	StatusNoMessages         = "No messages found"
	StatusIgnoredBotMessage  = "Ignored bot's own message"
	StatusNoURLs             = "No URLs found"
	StatusNoSummaries        = "No articles could be summarized"
	StatusPostFailed         = "Failed to post summary"
	StatusSummarized         = "Summarized"
	StatusUnauthorized       = "Unauthorized user"
	StatusInvalidData        = "Invalid data format"
)

// Response is the outcome of handling one inbound event. It is always a
// well-formed status payload; PlainText responses bypass JSON encoding.
type Response struct {
	Code      int
	Status    string
	Summary   string
	Posted    int
	Error     string
	Plain     bool
	PlainText string
}

// IsPlainText reports whether the response is a bare text body.
func (r Response) IsPlainText() bool { return r.Plain }

// Body returns the JSON body fields.
func (r Response) Body() map[string]any {
	body := map[string]any{}
	if r.Status != "" {
		body["status"] = r.Status
	}
	if r.Summary != "" {
		body["summary"] = r.Summary
		body["posted"] = r.Posted
	}
	if r.Error != "" {
		body["error"] = r.Error
	}
	return body
}

func Challenge(token string) Response {
	return Response{Code: http.StatusOK, Plain: true, PlainText: token}
}

func OK(status string) Response {
	return Response{Code: http.StatusOK, Status: status}
}

func Fail(code int, status string) Response {
	return Response{Code: code, Status: status}
}

func Invalid(detail string) Response {
	return Response{Code: http.StatusBadRequest, Status: StatusInvalidData, Error: detail}
}
