package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yukikurage/task-approval-api/internal/constants"
)

// FormatReferenceNumber formats a task sequence number as TSK-000042
func FormatReferenceNumber(seq uint64) string {
	return fmt.Sprintf("%s-%06d", constants.ReferenceNumberBase, seq)
}

// ParseReferenceNumber extracts the sequence number from a reference number
func ParseReferenceNumber(ref string) (uint64, error) {
	prefix := constants.ReferenceNumberBase + "-"
	if !strings.HasPrefix(ref, prefix) {
		return 0, fmt.Errorf("invalid reference number %q", ref)
	}
	seq, err := strconv.ParseUint(strings.TrimPrefix(ref, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid reference number %q: %w", ref, err)
	}
	return seq, nil
}
