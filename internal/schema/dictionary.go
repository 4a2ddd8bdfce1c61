// Package schema loads the class/object/type catalog and enriches
// translated events: it derives type_uid, adds the textual siblings of
// enum attributes, and collects the observables referenced by the event.
package schema

import (
	"github.com/google/uuid"

	"github.com/telhawk-systems/telhawk-normalize/internal/event"
)

// Well-known attribute names in the catalog and in enriched events.
const (
	AttrClassUID    = "class_uid"
	AttrActivityID  = "activity_id"
	AttrTypeUID     = "type_uid"
	AttrObservables = "observables"

	attrAttributes = "attributes"
	attrEnum       = "enum"
	attrSibling    = "sibling"
	attrUID        = "uid"
	attrName       = "name"
	attrCaption    = "caption"
	attrType       = "type"
	attrTypeID     = "type_id"
	attrValue      = "value"
	attrIsArray    = "is_array"
	attrObjectType = "object_type"
	attrObservable = "observable"

	enumSuffix = "_id"

	// opaqueType marks attributes whose payload the enrichment walk
	// must not descend into.
	opaqueType = "json_t"
)

// Other is the catch-all observable type caption.
const Other = "Other"

// OtherID is the activity identifier substituted when an event carries a
// negative (unknown) activity_id.
const OtherID = 99

// TypeUID computes an event type identifier from the class and activity
// identifiers: class_uid * 100 + activity_id, with OtherID standing in
// for negative activity values.
func TypeUID(classUID, activityID int) int {
	if activityID < 0 {
		activityID = OtherID
	}
	return classUID*100 + activityID
}

// metadataUID is the path of the generated event identifier.
var metadataUID = []string{"metadata", "uid"}

// AddUID stamps a random UUID at metadata.uid and returns the tree.
func AddUID(data map[string]any) map[string]any {
	event.PutIn(data, metadataUID, uuid.NewString())
	return data
}

// AddTypeUID derives and stores type_uid when both class_uid and
// activity_id are known. Events without a class are left untouched.
func AddTypeUID(data map[string]any) map[string]any {
	classUID, ok := event.Int(data[AttrClassUID])
	if !ok {
		return data
	}
	activityID, ok := event.Int(data[AttrActivityID])
	if !ok {
		return data
	}
	data[AttrTypeUID] = TypeUID(classUID, activityID)
	return data
}
