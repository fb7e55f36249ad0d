package geocode

import (
	"errors"
	"net/http"
)

// failingTransport fails every round trip with err, simulating a transport error.
type failingTransport struct {
	err error
}

func (t *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, t.err
}

func newFailingClient() *http.Client {
	return &http.Client{Transport: &failingTransport{err: errors.New("connection reset by peer")}}
}
