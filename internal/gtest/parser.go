// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package gtest

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/ianaindex"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/logging"
)

// ParseErrorReason describes why a document could not be parsed.
type ParseErrorReason int

const (
	// ReasonMissing means that the document could not be opened.
	ReasonMissing ParseErrorReason = iota
	// ReasonMalformed means that the document is not well-formed XML.
	ReasonMalformed
	// ReasonUnrecognizedShape means that the document is well-formed but
	// holds no test suites.
	ReasonUnrecognizedShape
)

func (r ParseErrorReason) String() string {
	switch r {
	case ReasonMissing:
		return "missing"
	case ReasonMalformed:
		return "malformed"
	case ReasonUnrecognizedShape:
		return "unrecognized shape"
	default:
		return fmt.Sprintf("ParseErrorReason(%d)", int(r))
	}
}

// ParseError is returned when a result document cannot be parsed. Parsing
// never partially succeeds.
type ParseError struct {
	Reason ParseErrorReason
	// Path is the document path if known.
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	where := "result document"
	if e.Path != "" {
		where = e.Path
	}
	return fmt.Sprintf("%s: %v: %v", where, e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// Kind implements the classification interface used by errors.KindOf.
func (e *ParseError) Kind() errors.Kind { return errors.ParseFailure }

// ParseFile parses the result document at path on fs.
func ParseFile(ctx context.Context, fs afero.Fs, path string) (*Document, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, &ParseError{Reason: ReasonMissing, Path: path, Err: err}
	}
	defer f.Close()

	doc, err := Parse(ctx, f)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// Parse parses a GTest XML result document read from r.
//
// The root element may be a container of <testsuite> elements (normally
// <testsuites>, possibly empty) or a single <testsuite>. Suites whose
// counters are not numeric are kept but excluded from the overall summary.
func Parse(ctx context.Context, r io.Reader) (*Document, error) {
	root, err := readTree(r)
	if err != nil {
		return nil, &ParseError{Reason: ReasonMalformed, Err: err}
	}

	suiteEls := root.childrenNamed("testsuite")
	if len(suiteEls) == 0 {
		switch root.name {
		case "testsuite":
			suiteEls = []*element{root}
		case "testsuites":
		default:
			return nil, &ParseError{
				Reason: ReasonUnrecognizedShape,
				Err:    errors.Errorf("unexpected root element <%s>; want <testsuites> or <testsuite>", root.name),
			}
		}
	}

	doc := &Document{Suites: make([]Suite, 0, len(suiteEls))}
	for _, el := range suiteEls {
		s := parseSuite(ctx, el)
		if s.CountersValid {
			doc.Overall.Tests += s.Declared.Tests
			doc.Overall.Failures += s.Declared.Failures
			doc.Overall.Disabled += s.Declared.Disabled
			doc.Overall.Errors += s.Declared.Errors
			doc.Overall.ElapsedSeconds += s.ElapsedSeconds
		}
		doc.Suites = append(doc.Suites, s)
	}
	return doc, nil
}

func parseSuite(ctx context.Context, el *element) Suite {
	s := Suite{
		Name: el.attr("name", UnknownSuiteName),
		Raw: RawCounters{
			Tests:    el.attr("tests", defaultCount),
			Failures: el.attr("failures", defaultCount),
			Disabled: el.attr("disabled", defaultCount),
			Errors:   el.attr("errors", defaultCount),
			Time:     el.attr("time", defaultTime),
		},
	}

	var bad []string
	atoi := func(name, v string, dst *int) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s=%q", name, v))
			return
		}
		*dst = n
	}
	atoi("tests", s.Raw.Tests, &s.Declared.Tests)
	atoi("failures", s.Raw.Failures, &s.Declared.Failures)
	atoi("disabled", s.Raw.Disabled, &s.Declared.Disabled)
	atoi("errors", s.Raw.Errors, &s.Declared.Errors)
	if t, err := strconv.ParseFloat(strings.TrimSpace(s.Raw.Time), 64); err != nil {
		bad = append(bad, fmt.Sprintf("time=%q", s.Raw.Time))
	} else {
		s.ElapsedSeconds = t
	}

	s.CountersValid = len(bad) == 0
	if !s.CountersValid {
		logging.Warningf(ctx, "Suite %s has non-numeric counters (%s); excluding it from the overall summary", s.Name, strings.Join(bad, ", "))
	}

	for _, ce := range el.childrenNamed("testcase") {
		s.Cases = append(s.Cases, parseCase(ce))
	}
	return s
}

func parseCase(el *element) Case {
	c := Case{
		Name:      el.attr("name", UnknownCaseName),
		RawStatus: el.attr("status", UnknownRawStatus),
		RawTime:   el.attr("time", defaultTime),
	}
	c.Status = ParseStatus(c.RawStatus)
	if t, err := strconv.ParseFloat(strings.TrimSpace(c.RawTime), 64); err == nil {
		c.ElapsedSeconds = t
	}

	if fs := el.childrenNamed("failure"); len(fs) > 0 {
		f := fs[0]
		msg := strings.TrimSpace(f.text.String())
		if msg == "" {
			msg = f.attr("message", "")
		}
		if msg == "" {
			msg = "No message"
		}
		c.Failure = &Failure{Message: msg, Kind: f.attr("type", "")}
	}
	c.Outcome = DeriveOutcome(c.Status, c.Failure != nil)
	return c
}

// element is a node of a parsed XML document.
type element struct {
	name     string
	attrs    map[string]string
	text     strings.Builder // character data directly inside the element
	children []*element
}

// attr returns the value of the attribute name, or def if it is absent.
func (e *element) attr(name, def string) string {
	if v, ok := e.attrs[name]; ok {
		return v
	}
	return def
}

func (e *element) childrenNamed(name string) []*element {
	var els []*element
	for _, c := range e.children {
		if c.name == name {
			els = append(els, c)
		}
	}
	return els
}

// readTree reads a whole XML document from r and returns its root element.
// Every token through the end of input is read, so any syntax error in the
// document is reported.
func readTree(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var root *element
	var stack []*element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				el.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					line, _ := dec.InputPos()
					return nil, errors.Errorf("line %d: multiple root elements", line)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			} else if len(strings.TrimSpace(string(t))) > 0 {
				return nil, errors.New("character data outside the root element")
			}
		}
	}
	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

// charsetReader decodes documents declaring a non-UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, errors.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
