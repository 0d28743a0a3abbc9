package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// segment — один шаг навигации: ключ объекта или индекс массива.
type segment struct {
	key   string
	index int
	isIdx bool
}

// parsePath разбирает путь вида "body.items[0].id" на сегменты.
func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, nil
	}

	segs := make([]segment, 0, 4)

	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrBadPath, path)
		}

		// Отделяем ключ от индексов: "items[0][1]" → "items", [0], [1]
		key := part
		var brackets string
		if i := strings.IndexByte(part, '['); i >= 0 {
			key = part[:i]
			brackets = part[i:]
		}

		if key != "" {
			segs = append(segs, segment{key: key})
		}

		for brackets != "" {
			if brackets[0] != '[' {
				return nil, fmt.Errorf("%w: %q", ErrBadPath, path)
			}
			end := strings.IndexByte(brackets, ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed bracket in %q", ErrBadPath, path)
			}
			idx, err := strconv.Atoi(brackets[1:end])
			if err != nil {
				return nil, fmt.Errorf("%w: non-numeric index in %q", ErrBadPath, path)
			}
			segs = append(segs, segment{index: idx, isIdx: true})
			brackets = brackets[end+1:]
		}
	}

	return segs, nil
}

// Walk навигирует по JSON-совместимому значению по пути
// из ключей через точку и числовых индексов в скобках.
//
// Отсутствующий ключ, индекс за границами и навигация вглубь скаляра
// возвращают ErrPathNotFound.
func Walk(value any, path string) (any, error) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	cur := value
	for _, seg := range segs {
		if seg.isIdx {
			arr, ok := cur.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %q is not an array at [%d]", ErrPathNotFound, path, seg.index)
			}
			if seg.index < 0 || seg.index >= len(arr) {
				return nil, fmt.Errorf("%w: index %d out of range in %q", ErrPathNotFound, seg.index, path)
			}
			cur = arr[seg.index]
			continue
		}

		switch m := cur.(type) {
		case map[string]any:
			next, ok := m[seg.key]
			if !ok {
				return nil, fmt.Errorf("%w: missing key %q in %q", ErrPathNotFound, seg.key, path)
			}
			cur = next
		case map[string]string:
			next, ok := m[seg.key]
			if !ok {
				return nil, fmt.Errorf("%w: missing key %q in %q", ErrPathNotFound, seg.key, path)
			}
			cur = next
		default:
			return nil, fmt.Errorf("%w: cannot descend into %T at %q", ErrPathNotFound, cur, seg.key)
		}
	}

	return cur, nil
}
