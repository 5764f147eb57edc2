package domain

// Image is an uploaded picture after transport decoding. Handlers and the CLI
// build it from multipart files or base64 strings; services only see this.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

func (i *Image) Size() int {
	if i == nil {
		return 0
	}
	return len(i.Data)
}
