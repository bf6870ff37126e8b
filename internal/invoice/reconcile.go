package invoice

import (
	"reflect"

	"github.com/brzcapital/extract-equatorialRender-V1/pkg/models"
)

// Reconcile merges a remote record into the local one. A local field is kept
// whenever it holds a value; only nil pointers, empty strings and an empty
// injection list are filled from remote. A nil remote returns local as is.
// Remote values never cause a local value to be removed.
func Reconcile(local models.InvoiceRecord, remote *models.InvoiceRecord) models.InvoiceRecord {
	merged := local
	if remote == nil {
		return merged
	}

	dst := reflect.ValueOf(&merged).Elem()
	src := reflect.ValueOf(remote).Elem()
	for i := 0; i < dst.NumField(); i++ {
		if !isAbsent(dst.Field(i)) {
			continue
		}
		if isAbsent(src.Field(i)) {
			continue
		}
		dst.Field(i).Set(src.Field(i))
	}

	// A remote price below the local tariff would push the local tariff out
	// once invariants are enforced; the remote price is dropped instead.
	if local.ConsumoSCEETarifaUnitaria != nil && local.ConsumoSCEEPrecoUnitComTributos == nil &&
		tariffExceedsPrice(&merged) {
		merged.ConsumoSCEEPrecoUnitComTributos = nil
	}

	return merged
}

// filledFields lists the JSON keys whose value differs between local and
// merged records, i.e. the fields completed remotely.
func filledFields(local, merged models.InvoiceRecord) []string {
	names := RecordFields()
	l := reflect.ValueOf(local)
	m := reflect.ValueOf(merged)
	var filled []string
	for i := 0; i < l.NumField(); i++ {
		if isAbsent(l.Field(i)) && !isAbsent(m.Field(i)) {
			filled = append(filled, names[i])
		}
	}
	return filled
}
