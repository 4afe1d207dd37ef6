package gemini

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/jomessina-code/EVS14/internal/domain"
)

var authMarkers = []string{
	"api key not valid",
	"permission denied",
	"permission_denied",
	"requested entity was not found",
	"api_key",
	"unauthenticated",
}

// classify maps a transport or API error onto the failure taxonomy.
func classify(op string, err error) error {
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) {
		return err
	}

	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}

	if code == http.StatusUnauthorized || code == http.StatusForbidden || isAuthMessage(err.Error()) {
		return domain.NewError(domain.KindAuthInvalid, op, err)
	}
	return domain.NewError(domain.KindNetworkOrUnknown, op, err)
}

func isAuthMessage(message string) bool {
	message = strings.ToLower(message)
	for _, marker := range authMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

var blockedFinishReasons = map[string]struct{}{
	"SAFETY":                   {},
	"PROHIBITED_CONTENT":       {},
	"BLOCKLIST":                {},
	"SPII":                     {},
	"RECITATION":               {},
	"IMAGE_SAFETY":             {},
	"IMAGE_PROHIBITED_CONTENT": {},
}

// blockedReason reports why the model refused to answer, if it did.
func blockedReason(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		reason := string(fb.BlockReason)
		if fb.BlockReasonMessage != "" {
			reason += ": " + fb.BlockReasonMessage
		}
		return reason, true
	}
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		if _, ok := blockedFinishReasons[string(cand.FinishReason)]; ok {
			return string(cand.FinishReason), true
		}
	}
	return "", false
}
