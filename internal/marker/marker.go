// Package marker renders ordered-list item markers. The rendering engine's
// own counters go wrong as soon as a diff inserts or removes a list item, so
// markers are computed here, from scratch, on every render.
package marker

import "strconv"

// Text returns the marker for the item at zero-based index in an ordered
// list nested at the given depth (depth 1 is a top-level list). The styles
// cycle with depth the way specification documents conventionally do:
// decimal, lowercase alphabetic, lowercase Roman.
func Text(index, depth int) string {
	if depth > 0 {
		switch depth % 3 {
		case 2:
			return alphabetic(index + 1)
		case 0:
			return roman(index + 1)
		}
	}
	return strconv.Itoa(index + 1)
}

// alphabetic is 1-indexed bijective base 26: a..z, aa..az, ba..
func alphabetic(n int) string {
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		n--
		i--
		buf[i] = byte('a' + n%26)
		n /= 26
	}
	return string(buf[i:])
}

// Two symbols per decimal place; the "ten" of a place is the "one" of the
// next. The scheme runs out at 3999.
var romanPlaces = [4][2]byte{
	{'i', 'v'},
	{'x', 'l'},
	{'c', 'd'},
	{'m', 0},
}

func roman(n int) string {
	if n < 1 || n > 3999 {
		return strconv.Itoa(n)
	}
	var out []byte
	for place := 3; place >= 0; place-- {
		pow := 1
		for i := 0; i < place; i++ {
			pow *= 10
		}
		digit := (n / pow) % 10
		one := romanPlaces[place][0]
		five := romanPlaces[place][1]
		var ten byte
		if place < 3 {
			ten = romanPlaces[place+1][0]
		}
		switch {
		case digit == 9:
			out = append(out, one, ten)
		case digit >= 5:
			out = append(out, five)
			for i := 5; i < digit; i++ {
				out = append(out, one)
			}
		case digit == 4:
			out = append(out, one, five)
		default:
			for i := 0; i < digit; i++ {
				out = append(out, one)
			}
		}
	}
	return string(out)
}
