package mzbin

import "strconv"

// CV prefixes recognized by the metadata codec (§3 invariants, §4.4).
const (
	cvPrefixMS   = "MS"
	cvPrefixUO   = "UO"
	cvPrefixNCIT = "NCIT"
	cvPrefixPEFF = "PEFF"

	// cvRefAttr is the reserved synthetic prefix for XML attributes
	// encoded as parameters (§4.5).
	cvRefAttr = "B000"
)

// refCode is the one-byte CV prefix code stored in meta_ref_codes /
// meta_unit_refs (§4.4).
type refCode = uint8

const (
	refCodeMS      refCode = 0
	refCodeUO      refCode = 1
	refCodeNCIT    refCode = 2
	refCodePEFF    refCode = 3
	refCodeNone    refCode = 0xFF
)

func refCodeFromPrefix(p string) (refCode, bool) {
	switch p {
	case cvPrefixMS:
		return refCodeMS, true
	case cvPrefixUO:
		return refCodeUO, true
	case cvPrefixNCIT:
		return refCodeNCIT, true
	case cvPrefixPEFF:
		return refCodePEFF, true
	default:
		return refCodeNone, false
	}
}

func prefixFromRefCode(c refCode) (string, bool) {
	switch c {
	case refCodeMS:
		return cvPrefixMS, true
	case refCodeUO:
		return cvPrefixUO, true
	case refCodeNCIT:
		return cvPrefixNCIT, true
	case refCodePEFF:
		return cvPrefixPEFF, true
	default:
		return "", false
	}
}

func isCVPrefix(p string) bool {
	_, ok := refCodeFromPrefix(p)
	return ok
}

// attrTail enumerates the B000: synthetic attribute tags (§4.5). The
// table is the single place attribute semantics are named; reassembly
// switches on it rather than modeling attributes as a type hierarchy
// (see spec.md's Design Notes on polymorphism).
type attrTail uint32

const (
	attrCount                     attrTail = 1
	attrID                        attrTail = 2
	attrIndex                     attrTail = 3
	attrMSLevel                   attrTail = 4
	attrScanNumber                attrTail = 5
	attrNativeID                  attrTail = 6
	attrSpotID                    attrTail = 7
	attrSourceFileRef             attrTail = 8
	attrDataProcessingRef         attrTail = 9
	attrDefaultDataProcessingRef  attrTail = 10
	attrDefaultArrayLength        attrTail = 11
	attrArrayLength               attrTail = 12
	attrEncodedLength             attrTail = 13
	attrFullName                  attrTail = 14
	attrVersion                   attrTail = 15
	attrURI                       attrTail = 16
	attrSpectrumRef               attrTail = 17
	attrScanCVCount               attrTail = 18
	attrScanInstrumentConfigRef   attrTail = 19
	attrProductCVCount            attrTail = 20
)

// b000Accession formats the synthetic B000: accession string for tail.
func b000Accession(tail attrTail) string {
	return cvRefAttr + ":" + strconv.FormatUint(uint64(tail), 10)
}

// accessionPrefix splits "PREFIX:TAIL" into its two halves. ok is false
// for a bare user-param name with no colon.
func accessionPrefix(acc string) (prefix, tail string, ok bool) {
	for i := 0; i < len(acc); i++ {
		if acc[i] == ':' {
			return acc[:i], acc[i+1:], true
		}
	}
	return "", "", false
}

// parseAccessionTail extracts the trailing run of decimal digits from an
// accession's tail half, the way original_source's parse_accession_tail_str
// does (NCIT tails carry a leading 'C', e.g. "C12913").
func parseAccessionTail(acc string) uint32 {
	_, tail, ok := accessionPrefix(acc)
	if !ok {
		tail = acc
	}
	var v uint64
	saw := false
	for i := 0; i < len(tail); i++ {
		c := tail[i]
		if c < '0' || c > '9' {
			continue
		}
		saw = true
		v = v*10 + uint64(c-'0')
		if v > 1<<32-1 {
			return 0
		}
	}
	if !saw {
		return 0
	}
	return uint32(v)
}

// makeAccession formats an accession string from a CV prefix and a
// numeric tail, following the per-prefix conventions of §4.4/§4.5.
func makeAccession(prefix string, tail uint32) string {
	if tail == 0 {
		return ""
	}
	switch prefix {
	case cvPrefixMS, cvPrefixUO, cvPrefixPEFF:
		return prefix + ":" + zeroPad7(tail)
	case cvPrefixNCIT:
		return cvPrefixNCIT + ":C" + zeroPad5(tail)
	case cvRefAttr:
		return cvRefAttr + ":" + strconv.FormatUint(uint64(tail), 10)
	default:
		return strconv.FormatUint(uint64(tail), 10)
	}
}

func zeroPad7(v uint32) string {
	s := strconv.FormatUint(uint64(v), 10)
	for len(s) < 7 {
		s = "0" + s
	}
	return s
}

func zeroPad5(v uint32) string {
	s := strconv.FormatUint(uint64(v), 10)
	for len(s) < 5 {
		s = "0" + s
	}
	return s
}

// Well-known MS accession tails used outside the generic metadata path
// (array semantics, float format, compression markers).
const (
	accMZArray        uint32 = 1000514
	accIntensityArray uint32 = 1000515
	accTimeArray      uint32 = 1000595

	acc32BitFloat uint32 = 1000521
	acc64BitFloat uint32 = 1000523

	accZlibCompression uint32 = 1000574
	accNoCompression   uint32 = 1000576

	accIsoTargetMZ     uint32 = 1000827
	accIsoLowerOffset  uint32 = 1000828
	accIsoUpperOffset  uint32 = 1000829
	accSelectedIonMZ   uint32 = 1000744
	accChargeState     uint32 = 1000041
	accInSourceCID     uint32 = 1001880
	accCollisionEnergy uint32 = 1000045
)

func isIsolationWindowTail(t uint32) bool {
	return t == accIsoTargetMZ || t == accIsoLowerOffset || t == accIsoUpperOffset
}

func isSelectedIonTail(t uint32) bool {
	return t == accSelectedIonMZ || t == accChargeState
}

func isActivationTail(t uint32) bool {
	return t == accInSourceCID || t == accCollisionEnergy
}
