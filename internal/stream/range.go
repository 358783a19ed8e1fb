package stream

import (
	"errors"
	"strconv"
	"strings"
)

var ErrRangeNotSatisfiable = errors.New("requested range not satisfiable")

// ByteRange is an inclusive byte span of a file.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// ParseRange interprets a single "bytes=start-end" Range header against a
// file of the given size. It reports ok=false when the header is absent or
// malformed, in which case the full content is served. A missing start means
// 0 and a missing end means the last byte; an end past the file is clamped.
func ParseRange(header string, size int64) (ByteRange, bool, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ByteRange{}, false, nil
	}
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return ByteRange{}, false, nil
	}
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return ByteRange{}, false, nil
	}
	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)
	if startStr == "" && endStr == "" {
		return ByteRange{}, false, nil
	}

	var start, end int64
	var err error
	if startStr != "" {
		if start, err = parseOffset(startStr); err != nil {
			return ByteRange{}, false, nil
		}
	}
	if endStr == "" {
		end = size - 1
	} else if end, err = parseOffset(endStr); err != nil {
		return ByteRange{}, false, nil
	}

	if size <= 0 || start >= size || start > end {
		return ByteRange{}, true, ErrRangeNotSatisfiable
	}
	if end >= size {
		end = size - 1
	}
	return ByteRange{Start: start, End: end}, true, nil
}

func parseOffset(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
