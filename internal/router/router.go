// Package router resolves the real backend endpoint for a generic
// "update" tool at call time, based on the shape of the submitted
// payload. Pure: reads only its three inputs, mutates nothing.
package router

import (
	"strings"

	"github.com/htssuite/erp-mcp/internal/canonical"
)

// Field-group hint sets: fixed vocabularies of lower-cased field names
// associated with one sub-resource category. Never mutated at runtime.
var (
	personalHints = hintSet(
		"first_name", "middle_name", "last_name", "father_name", "mother_name",
		"spouse_name", "dob", "date_of_birth", "gender", "marital_status",
		"nationality", "blood_group", "personal_email", "personal_contact",
	)
	addressHints = hintSet(
		"permanent_address", "present_address", "permanent_city", "present_city",
		"permanent_state", "present_state", "permanent_pin", "present_pin",
		"permanent_door_no", "present_door_no",
	)
	documentHints = hintSet(
		"doc_type", "doc_id", "file", "document_number", "document_type",
		"filename", "aadhar_number", "pan_number", "voter_id", "passport_number",
	)
	bankHints = hintSet(
		"bank_account_no", "ifsc", "bank_name", "branch_name", "account_holder_name",
	)
	emergencyHints = hintSet(
		"emergency_contact", "emergency_phone", "emergency_name", "emergency_relation",
	)
	generalHints = hintSet(
		"status", "active", "remarks", "description", "notes", "comments",
	)
)

// employeeFallbackOrder is the preference order tried when an employee
// payload carries only identifying fields (doc_id or name) and no
// category hints.
var employeeFallbackOrder = []string{
	"employee.details.update",
	"employee.address.update",
	"employee.document.update",
	"employee.update",
}

// ChooseUpdateEndpoint picks the most specific update endpoint for a
// composite resource by inspecting which field groups appear in the
// payload. Returns the canonical key of the chosen endpoint, or false
// when no applicable endpoint exists in the mapping. Callers must
// surface the false case as a routing failure, not silently drop the
// request.
//
// The employee hint priority (document, bank, emergency, address,
// personal) is carried over from the existing behaviour; the order is
// fixed but arbitrary.
func ChooseUpdateEndpoint(resource string, payload map[string]any, mapping canonical.Mapping) (string, bool) {
	keys := make(map[string]struct{}, len(payload))
	for k := range payload {
		keys[strings.ToLower(k)] = struct{}{}
	}

	switch resource {
	case "employee":
		return chooseEmployee(keys, mapping)
	case "attendance":
		return chooseModerated(payload, keys, mapping,
			"attendance.record.approve", "attendance.record.reject",
			"attendance.record.update")
	case "leave":
		return chooseModerated(payload, keys, mapping,
			"leave.request.approve", "leave.request.reject",
			"leave.request.update")
	case "asset":
		return chooseModerated(payload, keys, mapping,
			"asset.request.approve", "asset.request.reject",
			"asset.request.update", "asset.master.update")
	default:
		return lookup(mapping, resource+".update")
	}
}

func chooseEmployee(keys map[string]struct{}, mapping canonical.Mapping) (string, bool) {
	hinted := []struct {
		hints map[string]struct{}
		key   string
	}{
		{documentHints, "employee.document.update"},
		{bankHints, "employee.bank.update"},
		{emergencyHints, "employee.emergency.update"},
		{addressHints, "employee.address.update"},
		{personalHints, "employee.details.update"},
	}
	for _, h := range hinted {
		if intersects(keys, h.hints) {
			if _, ok := mapping[h.key]; ok {
				return h.key, true
			}
		}
	}

	if hasKey(keys, "doc_id") || hasKey(keys, "name") {
		for _, k := range employeeFallbackOrder {
			if _, ok := mapping[k]; ok {
				return k, true
			}
		}
	}

	return lookup(mapping, "employee.update")
}

// chooseModerated handles the approve/reject/else pattern shared by the
// attendance, leave, and asset families. Both disjuncts of each check are
// symmetric: a literal "approve"/"reject" key, or an "action" field
// valued accordingly.
func chooseModerated(payload map[string]any, keys map[string]struct{}, mapping canonical.Mapping, approveKey, rejectKey string, fallbacks ...string) (string, bool) {
	if hasKey(keys, "approve") || actionIs(payload, "approve") {
		return lookup(mapping, approveKey)
	}
	if hasKey(keys, "reject") || actionIs(payload, "reject") {
		return lookup(mapping, rejectKey)
	}
	for _, k := range fallbacks {
		if _, ok := mapping[k]; ok {
			return k, true
		}
	}
	return "", false
}

func actionIs(payload map[string]any, want string) bool {
	s, ok := payload["action"].(string)
	return ok && s == want
}

func lookup(mapping canonical.Mapping, key string) (string, bool) {
	if _, ok := mapping[key]; ok {
		return key, true
	}
	return "", false
}

func hasKey(keys map[string]struct{}, k string) bool {
	_, ok := keys[k]
	return ok
}

func intersects(keys, hints map[string]struct{}) bool {
	for k := range keys {
		if _, ok := hints[k]; ok {
			return true
		}
	}
	return false
}

func hintSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
