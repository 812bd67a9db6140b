package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ImageInput accepts either a bare url string or an {url, altText} object.
type ImageInput struct {
	URL     string
	AltText string
}

func (in *ImageInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*in = ImageInput{}
		return nil
	}
	switch data[0] {
	case '"':
		var url string
		if err := json.Unmarshal(data, &url); err != nil {
			return err
		}
		*in = ImageInput{URL: strings.TrimSpace(url)}
		return nil
	case '{':
		var obj struct {
			URL     string `json:"url"`
			AltText string `json:"altText"`
			Alt     string `json:"alt"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		alt := obj.AltText
		if alt == "" {
			alt = obj.Alt
		}
		*in = ImageInput{URL: strings.TrimSpace(obj.URL), AltText: strings.TrimSpace(alt)}
		return nil
	}
	return errors.New("image must be a url string or an object with url and altText")
}

func (in ImageInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(in.Image())
}

func (in ImageInput) Image() Image {
	return Image{URL: in.URL, AltText: in.AltText}
}
