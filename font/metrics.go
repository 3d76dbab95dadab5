package font

// Widths of the standard 14 fonts, in thousandths of an em, for the
// printable ASCII characters. Fonts without their own table use Helvetica.
var standardFonts = map[string]map[rune]float64{
	"Helvetica":             helvetica,
	"Helvetica-Bold":        helveticaBold,
	"Helvetica-Oblique":     helvetica,
	"Helvetica-BoldOblique": helveticaBold,
	"Times-Roman":           times,
	"Times-Bold":            timesBold,
	"Times-Italic":          times,
	"Times-BoldItalic":      timesBold,
	"Courier":               courier,
	"Courier-Bold":          courier,
	"Courier-Oblique":       courier,
	"Courier-BoldOblique":   courier,
	"Symbol":                symbol,
	"ZapfDingbats":          dingbats,
}

var (
	helvetica = metrics(" !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~",
		278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
		333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
		556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
	)
	helveticaBold = metrics(" ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz",
		278, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 556, 611, 556, 611, 556,
		333, 611, 611, 278, 278, 556, 278, 889, 611, 611, 611, 611, 389, 556, 333, 611,
		556, 778, 556, 556, 500,
	)
	times = metrics(" ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz",
		250, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
		556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 444, 500, 444, 500, 444,
		333, 500, 500, 278, 278, 500, 278, 778, 500, 500, 500, 500, 333, 389, 278, 500,
		500, 722, 500, 500, 444,
	)
	timesBold = metrics(" ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz",
		250, 722, 667, 722, 722, 667, 611, 778, 778, 389, 500, 778, 667, 944, 722, 778,
		611, 778, 722, 556, 667, 722, 722, 1000, 722, 722, 667, 500, 556, 444, 556, 444,
		333, 500, 556, 278, 333, 556, 278, 833, 556, 500, 556, 556, 444, 389, 333, 556,
		500, 722, 500, 500, 444,
	)
	courier  = monospaced(600)
	symbol   = monospaced(500)
	dingbats = monospaced(500)
)

// metrics pairs each character of chars with the width at the same index
func metrics(chars string, widths ...float64) map[rune]float64 {
	m := make(map[rune]float64, len(widths))
	for i, r := range []rune(chars) {
		m[r] = widths[i]
	}
	return m
}

func monospaced(w float64) map[rune]float64 {
	m := make(map[rune]float64, 95)
	for r := rune(32); r <= 126; r++ {
		m[r] = w
	}
	return m
}
