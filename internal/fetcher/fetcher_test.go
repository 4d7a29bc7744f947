package fetcher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestHTMLToText(t *testing.T) {
	html := "<html><body><p>Hello <b>world</b></p><br/>Bye</body></html>"

	assert.Equal(t, "Hello worldBye", htmlToText(html))
}

func TestHTMLToTextPlainInput(t *testing.T) {
	assert.Equal(t, "no markup here", htmlToText("  no markup here "))
}

func TestWrapGmailErrorAuth(t *testing.T) {
	err := wrapGmailError("failed to list messages", &googleapi.Error{Code: 401})
	assert.True(t, errors.Is(err, ErrAuth))

	err = wrapGmailError("failed to list messages", &googleapi.Error{Code: 403})
	assert.True(t, errors.Is(err, ErrAuth))
}

func TestWrapGmailErrorConnectivity(t *testing.T) {
	err := wrapGmailError("failed to list messages", &googleapi.Error{Code: 503})
	assert.True(t, errors.Is(err, ErrConnectivity))

	err = wrapGmailError("failed to list messages", errors.New("dial tcp: timeout"))
	assert.True(t, errors.Is(err, ErrConnectivity))
}
