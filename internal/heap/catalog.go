package heap

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/nvcode/slotdb/internal/record"
)

// catalog is the in-memory mirror of a table's page-0 text metadata: a
// numTuples/nextFreePage line, an attribute count line, then one line
// per attribute. Grounded on original_source/record_mgr.c's
// writeTableInfo/readTableInfo.
type catalog struct {
	numTuples    int
	nextFreePage int32 // -1 means "no known non-full page"
	schema       record.Schema
}

// encodeCatalog renders the catalog as the page-0 text payload,
// zero-padded to pagefile.PageSize by the caller.
func encodeCatalog(c catalog) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d %d\n", c.numTuples, c.nextFreePage)
	fmt.Fprintf(&b, "%d\n", len(c.schema.Attrs))
	for _, a := range c.schema.Attrs {
		length := a.Length
		if a.Type != record.TypeString {
			length = a.Width()
		}
		fmt.Fprintf(&b, "%d %d %s\n", int(a.Type), length, a.Name)
	}
	return b.Bytes()
}

// decodeCatalog parses a page-0 payload back into a catalog. Trailing
// zero bytes in the page are ignored.
func decodeCatalog(page []byte) (catalog, error) {
	text := string(bytes.TrimRight(page, "\x00"))
	scanner := bufio.NewScanner(strings.NewReader(text))

	if !scanner.Scan() {
		return catalog{}, fmt.Errorf("heap: catalog page missing header line")
	}
	var numTuples int
	var nextFreePage int32
	if _, err := fmt.Sscanf(scanner.Text(), "%d %d", &numTuples, &nextFreePage); err != nil {
		return catalog{}, fmt.Errorf("heap: malformed catalog header: %w", err)
	}

	if !scanner.Scan() {
		return catalog{}, fmt.Errorf("heap: catalog page missing attribute count")
	}
	numAttr, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return catalog{}, fmt.Errorf("heap: malformed attribute count: %w", err)
	}

	attrs := make([]record.Attribute, 0, numAttr)
	for i := 0; i < numAttr; i++ {
		if !scanner.Scan() {
			return catalog{}, fmt.Errorf("heap: catalog page truncated at attribute %d", i)
		}
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 3)
		if len(fields) != 3 {
			return catalog{}, fmt.Errorf("heap: malformed attribute line %q", scanner.Text())
		}
		typ, err := strconv.Atoi(fields[0])
		if err != nil {
			return catalog{}, fmt.Errorf("heap: malformed attribute type: %w", err)
		}
		length, err := strconv.Atoi(fields[1])
		if err != nil {
			return catalog{}, fmt.Errorf("heap: malformed attribute length: %w", err)
		}
		attrs = append(attrs, record.Attribute{
			Name:   fields[2],
			Type:   record.AttrType(typ),
			Length: length,
		})
	}

	// The on-disk format carries no key indices; a single-attribute key
	// at index 0 is assumed on open.
	keyAttrs := []int{0}
	if numAttr == 0 {
		keyAttrs = nil
	}

	return catalog{
		numTuples:    numTuples,
		nextFreePage: nextFreePage,
		schema:       record.Schema{Attrs: attrs, KeyAttrs: keyAttrs},
	}, nil
}
