package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// EncodeTimeIDToken creates a keyset token from a timestamp and a tie-breaking id.
func EncodeTimeIDToken(at time.Time, id string) string {
	return encodeFields(at.UTC().Format(timeFormat), id)
}

// DecodeTimeIDToken parses a token created by EncodeTimeIDToken.
func DecodeTimeIDToken(token string) (time.Time, string, error) {
	fields, err := decodeFields(token)
	if err != nil {
		return time.Time{}, "", err
	}
	if len(fields) != 2 || fields[1] == "" {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (field count)")
	}
	at, err := time.Parse(timeFormat, fields[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (timestamp parse): %w", err)
	}
	return at, fields[1], nil
}

func encodeFields(fields ...string) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(fields, "|")))
}

func decodeFields(token string) ([]string, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	return strings.Split(string(decodedBytes), "|"), nil
}
