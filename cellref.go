package xltransform

import (
	"fmt"
	"strconv"
	"strings"
)

// CellRef represents a single cell position in a worksheet.
type CellRef struct {
	Sheet string // sheet name (empty = default sheet)
	Row   int    // 1-based row number
	Col   int    // 1-based column number
}

// NewCellRef creates a CellRef with explicit sheet, row, col.
func NewCellRef(sheet string, row, col int) CellRef {
	return CellRef{Sheet: sheet, Row: row, Col: col}
}

// String formats the CellRef as "Sheet1!A1" or "A1" if no sheet.
func (c CellRef) String() string {
	name := c.CellName()
	if c.Sheet != "" {
		return c.Sheet + "!" + name
	}
	return name
}

// CellName returns just the cell part like "A1" without sheet name.
func (c CellRef) CellName() string {
	return CellAddress(c.Col, c.Row)
}

// CellAddress formats a 1-based column and row as "B12".
// Out-of-range columns produce an empty letter part.
func CellAddress(col, row int) string {
	letters, _ := ColumnNumberToLetters(col)
	return letters + strconv.Itoa(row)
}

// ParseAddress splits an address like "b12" into its upper-cased column
// letters and its row number. Only letters followed by digits are accepted:
// no sheet qualifier, no "$" markers, no whitespace.
func ParseAddress(text string) (string, int, error) {
	if text == "" {
		return "", 0, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	i := 0
	for i < len(text) && isAlpha(text[i]) {
		i++
	}
	if i == 0 || i == len(text) {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidAddress, text)
	}

	row := 0
	for _, ch := range text[i:] {
		if ch < '0' || ch > '9' {
			return "", 0, fmt.Errorf("%w: invalid row in %q", ErrInvalidAddress, text)
		}
		row = row*10 + int(ch-'0')
		if row > maxRow {
			return "", 0, fmt.Errorf("%w: row out of range in %q", ErrInvalidAddress, text)
		}
	}
	if row < 1 {
		return "", 0, fmt.Errorf("%w: row must be positive in %q", ErrInvalidAddress, text)
	}

	return strings.ToUpper(text[:i]), row, nil
}

// ParseCellRef parses an address into a CellRef on the given sheet.
func ParseCellRef(sheet, text string) (CellRef, error) {
	letters, row, err := ParseAddress(text)
	if err != nil {
		return CellRef{}, err
	}
	col, err := ColumnLettersToNumber(letters)
	if err != nil {
		return CellRef{}, err
	}
	return CellRef{Sheet: sheet, Row: row, Col: col}, nil
}

// maxRow bounds row parsing so the accumulator cannot overflow.
const maxRow = 1 << 40

// maxColumnLetters bounds column parsing. maxColumn is "ZZZZZZZZZZZZ", the
// largest column that fits in that many letters; both directions share it.
const (
	maxColumnLetters = 12
	maxColumn        = 99246114928149462
)

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// ColumnLettersToNumber converts column letters using bijective base-26.
// "A"→1, "Z"→26, "AA"→27, "AZ"→52, "BA"→53
func ColumnLettersToNumber(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("%w: empty column letters", ErrInvalidAddress)
	}
	if len(letters) > maxColumnLetters {
		return 0, fmt.Errorf("%w: column letters too long: %q", ErrInvalidAddress, letters)
	}
	col := 0
	for i := 0; i < len(letters); i++ {
		ch := letters[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("%w: invalid column letters: %q", ErrInvalidAddress, letters)
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col, nil
}

// ColumnNumberToLetters converts a 1-based column number to its letters.
// 1→"A", 26→"Z", 27→"AA", 703→"AAA"
func ColumnNumberToLetters(col int) (string, error) {
	if col < 1 {
		return "", fmt.Errorf("%w: column number must be positive, got %d", ErrInvalidAddress, col)
	}
	if col > maxColumn {
		return "", fmt.Errorf("%w: column number %d exceeds %d", ErrInvalidAddress, col, maxColumn)
	}
	var buf [maxColumnLetters + 1]byte
	n := len(buf)
	for col > 0 {
		col--
		n--
		buf[n] = byte('A' + col%26)
		col /= 26
	}
	return string(buf[n:]), nil
}

// ChangeColumnInAddress keeps the row of address and replaces its column
// letters with newLetters (upper-cased).
func ChangeColumnInAddress(address, newLetters string) (string, error) {
	_, row, err := ParseAddress(address)
	if err != nil {
		return "", err
	}
	if _, err := ColumnLettersToNumber(newLetters); err != nil {
		return "", err
	}
	return strings.ToUpper(newLetters) + strconv.Itoa(row), nil
}

// ChangeColumnInRange applies ChangeColumnInAddress to both bounds of a range.
func ChangeColumnInRange(from, to, newLetters string) (string, string, error) {
	newFrom, err := ChangeColumnInAddress(from, newLetters)
	if err != nil {
		return "", "", fmt.Errorf("range start: %w", err)
	}
	newTo, err := ChangeColumnInAddress(to, newLetters)
	if err != nil {
		return "", "", fmt.Errorf("range end: %w", err)
	}
	return newFrom, newTo, nil
}
