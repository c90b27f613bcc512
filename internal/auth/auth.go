package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Session holds the grant returned by the backend token endpoint
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`

	// Extra keeps any other grant metadata sent by the backend (user id, jti, ...)
	Extra map[string]interface{} `json:"-"`
}

// sessionFields is the wire form of Session without the custom marshalers
type sessionFields Session

var knownSessionKeys = []string{"access_token", "token_type", "refresh_token", "expires_in", "scope", "issued_at"}

// MarshalJSON writes the known fields and merges Extra back in
func (s Session) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(sessionFields(s))
	if err != nil {
		return nil, err
	}
	if len(s.Extra) == 0 {
		return data, nil
	}
	merged := map[string]interface{}{}
	for key, value := range s.Extra {
		merged[key] = value
	}
	var known map[string]interface{}
	if err := json.Unmarshal(data, &known); err != nil {
		return nil, err
	}
	for key, value := range known {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the known fields and collects everything else into Extra
func (s *Session) UnmarshalJSON(data []byte) error {
	var fields sessionFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}
	for _, key := range knownSessionKeys {
		delete(raw, key)
	}
	*s = Session(fields)
	if len(raw) > 0 {
		s.Extra = raw
	}
	return nil
}

// Expiry returns when the access token stops being valid, zero if unknown
func (s *Session) Expiry() time.Time {
	if s.ExpiresIn <= 0 || s.IssuedAt.IsZero() {
		return time.Time{}
	}
	return s.IssuedAt.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// Token converts the session to an oauth2 token
func (s *Session) Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry(),
	}
	if len(s.Extra) > 0 {
		return token.WithExtra(s.Extra)
	}
	return token
}

// MaskedToken returns the access token with its middle hidden
func (s *Session) MaskedToken() string {
	masked := s.AccessToken
	if len(masked) > 8 {
		masked = masked[:4] + "..." + masked[len(masked)-4:]
	}
	return masked
}
