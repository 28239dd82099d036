package models

import (
	"encoding/base64"
	"strconv"
	"strings"
)

type PageInfo struct {
	StartCursor string `json:"startCursor"`
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

const cursorPrefix = "rec|"

// Ids grow with creation time, so a newest-first page is keyed by id alone.
func EncodeCursor(id int) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(id)))
}

func DecodeCursor(cursor *string) (int, error) {
	if cursor == nil || *cursor == "" {
		return 0, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil || !strings.HasPrefix(string(decoded), cursorPrefix) {
		return 0, newValidationError("after", "is not a valid cursor")
	}
	id, err := strconv.Atoi(strings.TrimPrefix(string(decoded), cursorPrefix))
	if err != nil || id <= 0 {
		return 0, newValidationError("after", "is not a valid cursor")
	}
	return id, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
