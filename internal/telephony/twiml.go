package telephony

import (
	"bytes"
	"encoding/xml"
)

// Document is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only the verbs the voice agent needs are included: speak a line, gather
// speech and post it back, redirect, hang up.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Timeout       int      `xml:"timeout,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr"`
	Say           *twimlSay
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// DefaultGatherTimeout is the silence timeout in seconds before the
// fallback verbs after a Gather run.
const DefaultGatherTimeout = 10

type Document struct {
	verbs []any
}

func NewDocument() *Document { return &Document{} }

// Say speaks a line to the caller.
func (d *Document) Say(text string) *Document {
	d.verbs = append(d.verbs, twimlSay{Text: text})
	return d
}

// GatherSpeech speaks a prompt, then listens for speech with automatic
// end-of-speech detection and posts the transcript to action.
func (d *Document) GatherSpeech(prompt, action string) *Document {
	d.verbs = append(d.verbs, twimlGather{
		Input:         "speech",
		Action:        action,
		Method:        "POST",
		Timeout:       DefaultGatherTimeout,
		SpeechTimeout: "auto",
		Say:           &twimlSay{Text: prompt},
	})
	return d
}

// Redirect hands the call to another webhook endpoint.
func (d *Document) Redirect(url string) *Document {
	d.verbs = append(d.verbs, twimlRedirect{Method: "POST", URL: url})
	return d
}

// Hangup ends the call.
func (d *Document) Hangup() *Document {
	d.verbs = append(d.verbs, twimlHangup{})
	return d
}

// Render serializes the document. A document with no verbs renders as an
// empty Response, which is valid TwiML.
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(twimlResponse{Verbs: d.verbs}); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
