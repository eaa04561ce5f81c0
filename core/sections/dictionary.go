// Package sections tags every Block of a document with the résumé section it
// sits under and decides which sections are protected from rewriting.
package sections

import (
	"sort"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/resumetailor/core/docx"
	"github.com/FocuswithJustin/resumetailor/core/errors"
)

// Tag is a canonical section name. It is the same type the docx arena stores
// on each Block.
type Tag = docx.Section

// Canonical section tags.
const (
	Education             Tag = "education"
	References            Tag = "references"
	WorkExperience        Tag = "work experience"
	Experience            Tag = "experience"
	SideProjects          Tag = "side projects"
	Projects              Tag = "projects"
	TechnicalSkills       Tag = "technical skills"
	Skills                Tag = "skills"
	Certifications        Tag = "certifications"
	Awards                Tag = "awards"
	Publications          Tag = "publications"
	Summary               Tag = "summary"
	Objective             Tag = "objective"
	Profile               Tag = "profile"
	VolunteerExperience   Tag = "volunteer experience"
	Leadership            Tag = "leadership"
	AdditionalInformation Tag = "additional information"
	Interests             Tag = "interests"
)

// DefaultHeaderMaxLen is the longest Block text, in characters, that can be
// read as a section header.
const DefaultHeaderMaxLen = 60

var canonical = []Tag{
	Education, References, WorkExperience, Experience, SideProjects, Projects,
	TechnicalSkills, Skills, Certifications, Awards, Publications, Summary,
	Objective, Profile, VolunteerExperience, Leadership, AdditionalInformation,
	Interests,
}

// Header spellings seen on real résumés, already normalized.
var synonyms = map[string]Tag{
	"education and training":      Education,
	"education and honors":        Education,
	"academic credentials":        Education,
	"academics":                   Education,
	"professional experience":     WorkExperience,
	"relevant experience":         WorkExperience,
	"employment":                  WorkExperience,
	"employment history":          WorkExperience,
	"work history":                WorkExperience,
	"project experience":          Projects,
	"personal projects":           SideProjects,
	"core skills":                 Skills,
	"skills and abilities":        Skills,
	"technical proficiencies":     TechnicalSkills,
	"certifications and licenses": Certifications,
	"licenses and certifications": Certifications,
	"honors and awards":           Awards,
	"awards and honors":           Awards,
	"professional summary":        Summary,
	"career summary":              Summary,
	"career objective":            Objective,
	"volunteering":                VolunteerExperience,
	"leadership experience":       Leadership,
}

var defaultProtected = []Tag{Education, References}

// Canonical returns every canonical tag in dictionary order.
func Canonical() []Tag {
	return append([]Tag(nil), canonical...)
}

// ParseTag resolves s to a canonical tag.
func ParseTag(s string) (Tag, bool) {
	n := Tag(Normalize(s))
	for _, t := range canonical {
		if t == n {
			return t, true
		}
	}
	return "", false
}

// Options configures a Dictionary. Zero values select the defaults.
type Options struct {
	// HeaderMaxLen overrides DefaultHeaderMaxLen when positive.
	HeaderMaxLen int
	// Headers maps extra header spellings onto canonical tag names.
	Headers map[string]string
	// Protected replaces the default protected set when non-nil.
	Protected []string
}

// Dictionary is the read-only header table shared by every labeling pass.
type Dictionary struct {
	headers   map[string]Tag
	protected map[Tag]bool
	maxLen    int
}

// DefaultDictionary returns the built-in dictionary.
func DefaultDictionary() *Dictionary {
	d, _ := NewDictionary(Options{})
	return d
}

// NewDictionary builds a dictionary from opts. Unknown target tags are
// rejected.
func NewDictionary(opts Options) (*Dictionary, error) {
	d := &Dictionary{
		headers:   make(map[string]Tag, len(canonical)+len(synonyms)+len(opts.Headers)),
		protected: make(map[Tag]bool),
		maxLen:    DefaultHeaderMaxLen,
	}
	if opts.HeaderMaxLen > 0 {
		d.maxLen = opts.HeaderMaxLen
	}
	for _, t := range canonical {
		d.headers[string(t)] = t
	}
	for h, t := range synonyms {
		d.headers[h] = t
	}

	names := make([]string, 0, len(opts.Headers))
	for h := range opts.Headers {
		names = append(names, h)
	}
	sort.Strings(names)
	for _, h := range names {
		t, ok := ParseTag(opts.Headers[h])
		if !ok {
			return nil, errors.NewValidation("sections.headers", "unknown section "+opts.Headers[h]+" for header "+h)
		}
		if key := Normalize(h); key != "" {
			d.headers[key] = t
		}
	}

	protected := defaultProtected
	if opts.Protected != nil {
		protected = nil
		for _, p := range opts.Protected {
			t, ok := ParseTag(p)
			if !ok {
				return nil, errors.NewValidation("sections.protected", "unknown section "+p)
			}
			protected = append(protected, t)
		}
	}
	for _, t := range protected {
		d.protected[t] = true
	}
	return d, nil
}

// Lookup normalizes text and returns the canonical tag it names.
func (d *Dictionary) Lookup(text string) (Tag, bool) {
	t, ok := d.headers[Normalize(text)]
	return t, ok
}

// Protected reports whether Blocks under t must never be rewritten.
func (d *Dictionary) Protected(t Tag) bool {
	return d.protected[t]
}

// ProtectedTags returns the protected set in dictionary order.
func (d *Dictionary) ProtectedTags() []Tag {
	var out []Tag
	for _, t := range canonical {
		if d.protected[t] {
			out = append(out, t)
		}
	}
	return out
}

// HeaderMaxLen returns the header length cutoff in characters.
func (d *Dictionary) HeaderMaxLen() int {
	return d.maxLen
}

// Normalize lower-cases s, spells "&" as "and", drops punctuation and
// collapses whitespace.
func Normalize(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "&", " and ")
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}
