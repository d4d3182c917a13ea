package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trading-journal-console/internal/models"
)

// Accepted spellings per identity field, across API revisions.
var (
	idKeys        = []string{"id", "user_id", "userId"}
	usernameKeys  = []string{"username", "user_name", "userName"}
	emailKeys     = []string{"email"}
	firstNameKeys = []string{"firstName", "first_name"}
	lastNameKeys  = []string{"lastName", "last_name"}
	fullNameKeys  = []string{"fullName", "full_name", "name"}
	bioKeys       = []string{"bio"}
	avatarKeys    = []string{"avatarUrl", "avatar_url", "avatar"}
	phoneKeys     = []string{"phoneNumber", "phone_number", "phone"}
	timezoneKeys  = []string{"timezone", "time_zone", "timeZone"}
	createdKeys   = []string{"createdAt", "created_at"}
	updatedKeys   = []string{"updatedAt", "updated_at"}
)

// NormalizeIdentity turns any known /me payload into an Identity. The user
// object may be wrapped in a "data" or "user" envelope.
func NormalizeIdentity(raw json.RawMessage) (*models.Identity, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	for _, envelope := range []string{"data", "user"} {
		if inner, ok := fields[envelope]; ok {
			if nested, err := decodeObject(inner); err == nil {
				fields = nested
			}
		}
	}

	identity := &models.Identity{
		ID:          pickString(fields, idKeys),
		Username:    pickString(fields, usernameKeys),
		Email:       pickString(fields, emailKeys),
		FirstName:   pickString(fields, firstNameKeys),
		LastName:    pickString(fields, lastNameKeys),
		Bio:         pickString(fields, bioKeys),
		AvatarURL:   pickString(fields, avatarKeys),
		PhoneNumber: pickString(fields, phoneKeys),
		Timezone:    pickString(fields, timezoneKeys),
		CreatedAt:   pickTime(fields, createdKeys),
		UpdatedAt:   pickTime(fields, updatedKeys),
	}
	identity.FullName = DisplayName(pickString(fields, fullNameKeys), identity.FirstName, identity.LastName)

	if identity.ID == "" && identity.Username == "" {
		return nil, errors.New("identity has neither id nor username")
	}
	return identity, nil
}

// DisplayName prefers a non-blank full name and otherwise joins first and last name.
func DisplayName(fullName, firstName, lastName string) string {
	if name := strings.TrimSpace(fullName); name != "" {
		return name
	}
	var parts []string
	for _, p := range []string{firstName, lastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("identity is not a JSON object: %w", err)
	}
	if fields == nil {
		return nil, errors.New("identity is null")
	}
	return fields, nil
}

// pickString returns the first key present as a string or number.
func pickString(fields map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n != "" {
			return n.String()
		}
	}
	return ""
}

func pickTime(fields map[string]json.RawMessage, keys []string) *time.Time {
	value := pickString(fields, keys)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t
	}
	return nil
}
