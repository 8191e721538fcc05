package mocks

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// File is one part of a test multipart upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// MultipartBody encodes files as repeated "file" form fields and returns the
// body with its Content-Type header value.
func MultipartBody(files ...File) (*bytes.Buffer, string, error) {
	body, mw, err := encode(files)
	if err != nil {
		return nil, "", err
	}
	return body, mw.FormDataContentType(), nil
}

func encode(files []File) (*bytes.Buffer, *multipart.Writer, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
		h.Set("Content-Type", f.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}
	return body, mw, nil
}

// FileHeaders parses files into the headers a server sees for the "file" field.
func FileHeaders(files ...File) ([]*multipart.FileHeader, error) {
	body, mw, err := encode(files)
	if err != nil {
		return nil, err
	}

	form, err := multipart.NewReader(body, mw.Boundary()).ReadForm(32 << 20)
	if err != nil {
		return nil, err
	}
	return form.File["file"], nil
}

// JPEG returns a File of size bytes with an image/jpeg content type.
func JPEG(name string, size int) File {
	return File{Name: name, ContentType: "image/jpeg", Data: bytes.Repeat([]byte{0xff}, size)}
}
