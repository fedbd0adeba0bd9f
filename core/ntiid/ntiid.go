// Package ntiid builds and parses NTIIDs, the identifiers used as keys across the assessment index and items:
//
//	tag:nextthought.com,<date>:<Provider>-<Type>-<Specific>
package ntiid

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	prefix      = "tag:nextthought.com,"
	DefaultDate = "2011-10"

	TypeAssessment = "NAQ"
	TypeHTML       = "HTML"
)

var (
	ErrInvalid = errors.New("invalid NTIID")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._~-]+`)
	dateRegex   = regexp.MustCompile(`^\d{4}(-\d{2}){1,2}$`)
)

type NTIID struct {
	Date     string
	Provider string
	Type     string
	Specific string
}

// Escape replaces the characters that are not allowed in a provider or specific part.
func Escape(s string) string {
	return unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
}

// Make builds an NTIID string dated with DefaultDate.
func Make(provider, typ, specific string) string {
	return NTIID{Date: DefaultDate, Provider: provider, Type: typ, Specific: specific}.String()
}

func (n NTIID) String() string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(n.Date)
	b.WriteByte(':')
	if n.Provider != "" {
		b.WriteString(strings.ReplaceAll(Escape(n.Provider), "-", "_"))
		b.WriteByte('-')
	}
	b.WriteString(n.Type)
	b.WriteByte('-')
	b.WriteString(Escape(n.Specific))
	return b.String()
}

// Parse splits an NTIID into its parts. The provider is optional.
func Parse(s string) (NTIID, error) {
	if !strings.HasPrefix(s, prefix) {
		return NTIID{}, errors.Wrapf(ErrInvalid, "%q: missing tag prefix", s)
	}
	rest := s[len(prefix):]
	idx := strings.IndexByte(rest, ':')
	if idx <= 0 {
		return NTIID{}, errors.Wrapf(ErrInvalid, "%q: missing date", s)
	}
	n := NTIID{Date: rest[:idx]}
	if !dateRegex.MatchString(n.Date) {
		return NTIID{}, errors.Wrapf(ErrInvalid, "%q: bad date %q", s, n.Date)
	}

	parts := strings.SplitN(rest[idx+1:], "-", 3)
	switch len(parts) {
	case 3:
		n.Provider, n.Type, n.Specific = parts[0], parts[1], parts[2]
	case 2:
		n.Type, n.Specific = parts[0], parts[1]
	default:
		return NTIID{}, errors.Wrapf(ErrInvalid, "%q: missing type or specific part", s)
	}
	if n.Type == "" || n.Specific == "" {
		return NTIID{}, errors.Wrapf(ErrInvalid, "%q: empty type or specific part", s)
	}
	return n, nil
}

func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Child derives the NTIID of an object nested in parent, eg. a question inside a question set.
func Child(parent, typ, local string) (string, error) {
	n, err := Parse(parent)
	if err != nil {
		return "", err
	}
	n.Type = typ
	n.Specific = n.Specific + "." + local
	return n.String(), nil
}
