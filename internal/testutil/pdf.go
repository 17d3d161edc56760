// Package testutil builds PDF fixtures for tests.
package testutil

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// StatementLines returns the text lines of one contribution statement page.
// Empty arguments leave the corresponding anchor out of the page.
func StatementLines(name, rut, month string) []string {
	lines := []string{"CERTIFICADO DE COTIZACIONES PREVISIONALES"}
	if name != "" {
		lines = append(lines, fmt.Sprintf("Cotizaciones del Sr.(a) %s, trabajador dependiente", name))
	}
	if rut != "" {
		lines = append(lines, "Rut: "+rut)
	}
	lines = append(lines, "Empleador: COMERCIAL LOS ANDES LIMITADA")
	if month != "" {
		lines = append(lines,
			"N° Folio Planilla Periodo Remuneraciones",
			"123456789 Cotizacion Obligatoria",
			month+" 2024 850.000",
		)
	}
	lines = append(lines, "Total pagado 85.000")

	// Trailing blanks keep words apart if a reader drops the line breaks.
	for i := range lines {
		lines[i] += " "
	}
	return lines
}

// BuildPDF writes a minimal multi-page PDF. Each element of pages is the list
// of text lines shown on that page in Helvetica with WinAnsi encoding.
func BuildPDF(pages ...[]string) []byte {
	var buf bytes.Buffer
	offsets := []int{0} // object 0 is the free-list head

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets)-1, body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, lines := range pages {
		contentRef := 5 + 2*i
		writeObj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentRef))

		stream := contentStream(lines)
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets), xref)

	return buf.Bytes()
}

// StatementPDF builds a batch with one statement page per entry, each entry
// being {name, rut, month}
func StatementPDF(entries ...[3]string) []byte {
	pages := make([][]string, len(entries))
	for i, e := range entries {
		pages[i] = StatementLines(e[0], e[1], e[2])
	}
	return BuildPDF(pages...)
}

// CorruptPDF has a valid header and nothing a parser can use
func CorruptPDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog /Pages 9 0 R\nthis is not a pdf body\n%%EOF\n")
}

var winAnsi = encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())

func contentStream(lines []string) string {
	var b strings.Builder
	b.WriteString("BT\n/F1 10 Tf\n14 TL\n50 750 Td\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("T*\n")
		}
		fmt.Fprintf(&b, "(%s) Tj\n", escape(line))
	}
	b.WriteString("ET")
	return b.String()
}

func escape(s string) string {
	encoded, err := winAnsi.String(s)
	if err != nil {
		encoded = s
	}
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\r", `\r`, "\n", `\n`)
	return r.Replace(encoded)
}
