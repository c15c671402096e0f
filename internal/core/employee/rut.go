package employee

import (
	"strconv"
	"strings"
)

// NormalizeRUT は RUT からドットや空白を取り除き "本体-検証桁" の形式にそろえ、
// モジュロ 11 の検証桁を確認します。
func NormalizeRUT(raw string) (string, error) {
	cleaned := strings.NewReplacer(".", "", " ", "", "-", "").Replace(strings.TrimSpace(raw))
	cleaned = strings.ToUpper(cleaned)
	if len(cleaned) < 2 || len(cleaned) > 9 {
		return "", ErrInvalidRUT
	}

	body, dv := cleaned[:len(cleaned)-1], cleaned[len(cleaned)-1:]
	number, err := strconv.Atoi(body)
	if err != nil || number <= 0 {
		return "", ErrInvalidRUT
	}

	if checkDigit(number) != dv {
		return "", ErrInvalidRUT
	}

	return strconv.Itoa(number) + "-" + dv, nil
}

func checkDigit(number int) string {
	sum := 0
	factor := 2
	for n := number; n > 0; n /= 10 {
		sum += (n % 10) * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}

	switch rest := 11 - sum%11; rest {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(rest)
	}
}
