package client

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

type FieldPart struct {
	Name  string
	Value string
}

// Multipart is a request body sent as multipart/form-data. Parts are written in
// the order they were added.
type Multipart struct {
	fields []FieldPart
	files  []FilePart
}

func NewMultipart() *Multipart {
	return &Multipart{}
}

func (m *Multipart) AddField(name, value string) *Multipart {
	m.fields = append(m.fields, FieldPart{Name: name, Value: value})
	return m
}

func (m *Multipart) AddFile(f FilePart) *Multipart {
	m.files = append(m.files, f)
	return m
}

// Encode renders the body and returns it with the boundary content type.
func (m *Multipart) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range m.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	for _, f := range m.fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
