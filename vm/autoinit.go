package vm

import "fmt"

// autoInitAttrs returns the fields auto-init binds, in ascending slot
// order.
func autoInitAttrs(d *ClassDesc) []*Attr {
	var result []*Attr
	for _, a := range d.InstanceAttrs.Attrs() {
		if a.autoInitEligible() {
			result = append(result, a)
		}
	}
	return result
}

// autoInit binds constructor arguments to the class's eligible fields:
// positional arguments first, in slot order, then keyword arguments by
// name. Everything is validated before the first member is bound.
func (c *Class) autoInit(level *memberVector, args []Object, kw Kwds) error {
	t := c.typ
	fields := c.autoFields
	if len(args) > len(fields) {
		return argCountError(t, 0, len(fields), len(args))
	}
	var byName []*Attr
	if !isEmptyKwds(kw) {
		byName = make([]*Attr, 0, kw.Len())
		for _, name := range kw.Names() {
			attr := c.desc.InstanceAttrs.Lookup(name)
			if attr == nil {
				return fmt.Errorf("%w: %s has no member %q", ErrKeyword, t.Name, name)
			}
			if !attr.autoInitEligible() {
				return fmt.Errorf("%w: member %q of %s cannot be initialized by keyword", ErrKeyword, name, t.Name)
			}
			for _, f := range fields[:len(args)] {
				if f == attr {
					return fmt.Errorf("%w: keyword %q shadows positional argument of %s", ErrKeyword, name, t.Name)
				}
			}
			byName = append(byName, attr)
		}
	}
	for i, v := range args {
		level.set(fields[i].Addr, v)
	}
	for _, attr := range byName {
		v, _ := kw.Lookup(attr.Name)
		level.set(attr.Addr, v)
	}
	return nil
}
