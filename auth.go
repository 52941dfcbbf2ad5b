package retdec

import (
	"encoding/base64"
	"net/http"
	"runtime"
)

const clientName = "retdec-golang"

// userAgent identifies the client and the host platform.
var userAgent = clientName + "/" + runtime.GOOS

// Auth handles header generation.
type Auth struct {
	apiKey string
}

func newAuth(apiKey string) Auth {
	return Auth{apiKey: apiKey}
}

// Headers returns default headers including HTTP Basic authentication with the
// API key as the user name and an empty password.
func (a Auth) Headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(a.apiKey+":")))
	h.Set("User-Agent", userAgent)
	return h
}
