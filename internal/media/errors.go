package media

import "errors"

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrFileTooLarge     = errors.New("file exceeds maximum upload size")
	ErrUnsupportedMedia = errors.New("file is not a supported video type")
)
