package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/client/services"
)

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ParseAmountMl reads a liquid amount. A plain number is millilitres; an
// "oz" suffix converts from fluid ounces. Empty input yields nil.
func ParseAmountMl(s string) (*float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, nil
	}
	oz := strings.HasSuffix(s, "oz")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "oz"), "ml"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if oz {
		v = services.OzToMl(v)
	}
	return &v, nil
}

// ParseOptionalFloat returns nil for empty input.
func ParseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return &v, nil
}

// ParseOptionalInt returns nil for empty input.
func ParseOptionalInt(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return &v, nil
}

// ParseDate reads yyyy-mm-dd in loc as epoch milliseconds; empty input
// yields nil.
func ParseDate(s string, loc *time.Location) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want yyyy-mm-dd", s)
	}
	ms := t.UnixMilli()
	return &ms, nil
}

// optionalText returns nil for empty input.
func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
