package model

// Image is an upload candidate or a fetched product image.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
	// Fallback is set when the placeholder replaced an image that could not be fetched.
	Fallback bool
}

func (i Image) Size() int64 {
	return int64(len(i.Data))
}
