// Package objects holds the FIFO-per-id table of dynamic map objects
// (gobs/resources), grounded on original_source/src/bot/objects.rs. A
// single id can briefly hold more than one generation across a
// destroy-then-recreate pair of events, so each id keys a queue rather
// than a single value; readers always see the newest (back) entry.
package objects

type Object struct {
	ID       int64
	Name     string
	Position [2]float64
	Angle    float64
}

// Objects is a FIFO-per-id table: add appends, remove pops the oldest
// generation, and reads always return the newest (back) generation.
type Objects struct {
	byID   map[int64][]Object
	byName map[string]map[int64]bool
}

func New() *Objects {
	return &Objects{
		byID:   make(map[int64][]Object),
		byName: make(map[string]map[int64]bool),
	}
}

func (o *Objects) Add(obj Object) {
	o.byID[obj.ID] = append(o.byID[obj.ID], obj)
	o.indexName(obj.Name, obj.ID)
}

func (o *Objects) indexName(name string, id int64) {
	ids, ok := o.byName[name]
	if !ok {
		ids = make(map[int64]bool)
		o.byName[name] = ids
	}
	ids[id] = true
}

// GetByID returns the newest generation stored for id.
func (o *Objects) GetByID(id int64) (Object, bool) {
	q := o.byID[id]
	if len(q) == 0 {
		return Object{}, false
	}
	return q[len(q)-1], true
}

// GetByName returns the newest generation of every id ever seen under name.
func (o *Objects) GetByName(name string) []Object {
	var result []Object
	for id := range o.byName[name] {
		if obj, ok := o.GetByID(id); ok {
			result = append(result, obj)
		}
	}
	return result
}

// Remove pops the oldest generation for id; once the queue empties, the
// id is dropped from both indexes.
func (o *Objects) Remove(id int64) (Object, bool) {
	q := o.byID[id]
	if len(q) == 0 {
		return Object{}, false
	}
	removed := q[0]
	q = q[1:]
	if len(q) == 0 {
		delete(o.byID, id)
		if ids, ok := o.byName[removed.Name]; ok {
			delete(ids, id)
			if len(ids) == 0 {
				delete(o.byName, removed.Name)
			}
		}
	} else {
		o.byID[id] = q
	}
	return removed, true
}

// Update mutates the newest generation for id in place.
func (o *Objects) Update(id int64, update func(obj *Object)) bool {
	q := o.byID[id]
	if len(q) == 0 {
		return false
	}
	last := &q[len(q)-1]
	oldName := last.Name
	update(last)
	if last.Name != oldName {
		if ids, ok := o.byName[oldName]; ok {
			delete(ids, id)
			if len(ids) == 0 {
				delete(o.byName, oldName)
			}
		}
		o.indexName(last.Name, id)
	}
	return true
}

func (o *Objects) Len() int { return len(o.byID) }

// All returns the newest generation of every object, for snapshotting.
// Order is unspecified.
func (o *Objects) All() []Object {
	result := make([]Object, 0, len(o.byID))
	for id := range o.byID {
		if obj, ok := o.GetByID(id); ok {
			result = append(result, obj)
		}
	}
	return result
}

// LoadSnapshot replaces the table wholesale with a single generation per
// object, as done when a session restores from a SessionData checkpoint.
func (o *Objects) LoadSnapshot(objs []Object) {
	o.byID = make(map[int64][]Object, len(objs))
	o.byName = make(map[string]map[int64]bool, len(objs))
	for _, obj := range objs {
		o.Add(obj)
	}
}
