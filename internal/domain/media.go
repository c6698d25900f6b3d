package domain

import "strings"

// Media is a generated asset ready to be persisted.
type Media struct {
	Data     []byte
	MIMEType string
}

func (m Media) Kind() MediaType {
	if strings.HasPrefix(m.MIMEType, "video/") {
		return MediaTypeVideo
	}
	return MediaTypeImage
}
