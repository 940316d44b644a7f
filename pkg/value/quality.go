// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package value

// Quality is the three-state validity annotation carried by every signal
// sample. The zero value is NotAvailable, matching the wire decoder's rule
// that an unrecognized wire value defaults to NOT_AVAILABLE.
type Quality uint8

const (
	QualityNotAvailable Quality = iota
	QualityValid
	QualityInvalid
)

func (q Quality) String() string {
	switch q {
	case QualityValid:
		return "VALID"
	case QualityInvalid:
		return "INVALID"
	default:
		return "NOT_AVAILABLE"
	}
}

// QualityFromWire maps a raw wire tag to Quality, defaulting unrecognized
// values to NotAvailable rather than failing.
func QualityFromWire(tag uint64) Quality {
	switch tag {
	case uint64(QualityValid):
		return QualityValid
	case uint64(QualityInvalid):
		return QualityInvalid
	default:
		return QualityNotAvailable
	}
}
