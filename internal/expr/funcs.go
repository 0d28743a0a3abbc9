package expr

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Алфавиты для random* функций.
const (
	alnumChars   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	alphaChars   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numericChars = "0123456789"
	hexChars     = "0123456789abcdef"
)

// strftimeReplacer переводит коды %Y %m %d %H %M %S
// в reference layout пакета time.
var strftimeReplacer = strings.NewReplacer(
	"%Y", "2006",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
)

// CallFunc вызывает динамическую функцию по имени.
//
// Аргументы — литеральные строки без вложенных выражений.
// Каждый вызов независим: random* и date-функции вычисляются заново.
func CallFunc(name string, args []string) (any, error) {
	switch name {
	case "randomString":
		return randomFrom(alnumChars, args, 10)
	case "randomAlpha":
		return randomFrom(alphaChars, args, 10)
	case "randomNumeric":
		return randomFrom(numericChars, args, 10)
	case "randomHex":
		return randomFrom(hexChars, args, 16)
	case "randomEmail":
		local, _ := randomFrom(alphaChars, nil, 10)
		return strings.ToLower(local.(string)) + "@example.com", nil
	case "randomNumber":
		return randomNumber(args)
	case "randomChoice":
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: randomChoice needs at least one option", ErrBadFunctionCall)
		}
		return args[rand.IntN(len(args))], nil
	case "date":
		return formatDate(time.Now(), args, 0)
	case "futureDate":
		return relativeDate(args, 1)
	case "pastDate":
		return relativeDate(args, -1)
	case "timestamp":
		return time.Now().Unix(), nil
	case "iso_timestamp":
		return time.Now().UTC().Format(time.RFC3339), nil
	case "uuid":
		return uuid.NewString(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
}

// randomFrom генерирует строку заданной длины из алфавита.
// Первый аргумент — длина, по умолчанию defLen.
func randomFrom(alphabet string, args []string, defLen int) (any, error) {
	n := defLen
	if len(args) > 0 && args[0] != "" {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%w: length must be a positive integer, got %q", ErrBadFunctionCall, args[0])
		}
		n = parsed
	}

	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b), nil
}

// randomNumber генерирует целое число с заданным количеством цифр (по умолчанию 6).
// Первая цифра всегда ненулевая, чтобы количество цифр сохранялось.
func randomNumber(args []string) (any, error) {
	digits := 6
	if len(args) > 0 && args[0] != "" {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 || parsed > 18 {
			return nil, fmt.Errorf("%w: digits must be in 1..18, got %q", ErrBadFunctionCall, args[0])
		}
		digits = parsed
	}

	if digits == 1 {
		return int64(rand.IntN(10)), nil
	}

	low := int64(1)
	for i := 1; i < digits; i++ {
		low *= 10
	}
	return low + rand.Int64N(low*9), nil
}

// relativeDate форматирует дату со сдвигом в днях.
// Аргументы: (days=1, fmt="%Y-%m-%d"); sign задаёт направление сдвига.
func relativeDate(args []string, sign int) (any, error) {
	days := 1
	if len(args) > 0 && args[0] != "" {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%w: days must be a non-negative integer, got %q", ErrBadFunctionCall, args[0])
		}
		days = parsed
	}

	now := time.Now().AddDate(0, 0, sign*days)
	return formatDate(now, args, 1)
}

// formatDate форматирует время по strftime-коду из args[fmtIdx]
// (по умолчанию "%Y-%m-%d").
func formatDate(t time.Time, args []string, fmtIdx int) (any, error) {
	layout := "%Y-%m-%d"
	if len(args) > fmtIdx && args[fmtIdx] != "" {
		layout = args[fmtIdx]
	}
	return t.Format(strftimeReplacer.Replace(layout)), nil
}
