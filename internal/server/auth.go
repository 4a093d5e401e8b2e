package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var errNoOrganizer = errors.New("missing or invalid organizer token")

// newOrganizerToken returns a fresh bearer token and its bcrypt hash. Only
// the hash is stored; the token is shown to the organizer once.
func newOrganizerToken(cost int) (token, hash string, err error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generating token: %w", err)
	}
	token = hex.EncodeToString(b)
	h, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", "", fmt.Errorf("hashing token: %w", err)
	}
	return token, string(h), nil
}

// checkOrganizer verifies the request's bearer token against the stored hash.
func checkOrganizer(r *http.Request, hash string) error {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || token == "" {
		return errNoOrganizer
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return errNoOrganizer
	}
	return nil
}
