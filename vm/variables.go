package vm

import (
	"strings"
)

// parsePath splits a variable reference of the form "path:name" or
// "path.name" at its last separator. It fails when there is no separator,
// the path is empty, or the path ends in more than one colon.
func parsePath(ref string) (path, name string, ok bool) {
	i := strings.LastIndexAny(ref, ":.")
	if i < 0 {
		return "", "", false
	}
	path, name = ref[:i], ref[i+1:]
	if path == "" {
		return "", "", false
	}
	colons := 0
	for j := len(path) - 1; j > 0 && path[j] == ':'; j-- {
		colons++
		if colons > 1 {
			return "", "", false
		}
	}
	return path, name, true
}

// isSlashPath reports whether ref names a target rather than a variable.
func isSlashPath(ref string) bool {
	return strings.Contains(ref, "/") && !strings.Contains(ref, ":")
}

// findObject resolves a target path. Slash paths go to the host; dot paths
// resolve their first element as a variable and the rest as members.
func (t *Thread) findObject(path string) Object {
	if path == "" {
		return t.env.Target()
	}
	if strings.Contains(path, "/") || strings.Contains(path, ":") {
		return t.findTarget(path)
	}

	parts := strings.Split(path, ".")
	v, _ := t.getVariableRaw(parts[0])
	obj := v.Object()
	for _, part := range parts[1:] {
		if obj == nil {
			return nil
		}
		m, ok := obj.GetMember(part)
		if !ok {
			return nil
		}
		obj = m.Object()
	}
	return obj
}

// findTarget resolves a slash path through the host.
func (t *Thread) findTarget(path string) Object {
	host := t.in.host
	if host == nil {
		return nil
	}
	return host.FindTarget(t.env.Target(), path)
}

// getVariable resolves a variable reference. The second result is the
// object the value was found on when that matters for `this` binding.
func (t *Thread) getVariable(ref string) (Value, Object) {
	if path, name, ok := parsePath(ref); ok {
		obj := t.findObject(path)
		if obj == nil {
			log.Debugf("variable %q: path %q does not resolve", ref, path)
			return Undefined(), nil
		}
		v, _ := obj.GetMember(name)
		return v, obj
	}
	if isSlashPath(ref) {
		if obj := t.findTarget(ref); obj != nil {
			return ObjectValue(obj), nil
		}
	}
	return t.getVariableRaw(ref)
}

// getVariableRaw looks up a plain identifier: the scope stack innermost
// first, locals (SWF5 and below), the current target, `this`, `_global`
// (SWF6 and up), then the global object.
func (t *Thread) getVariableRaw(name string) (Value, Object) {
	for i := len(t.scope) - 1; i >= 0; i-- {
		obj := t.scope[i]
		if obj == nil {
			continue
		}
		if v, ok := obj.GetMember(name); ok {
			return v, obj
		}
	}

	if t.version < 6 {
		if locals := t.env.Locals(); locals != nil {
			if v, ok := locals.GetOwnMember(name); ok {
				return v, nil
			}
		}
	}

	if tgt := t.env.Target(); tgt != nil {
		if v, ok := tgt.GetMember(name); ok {
			return v, tgt
		}
	}

	if name == "this" {
		return ObjectValue(t.thisPointer()), nil
	}

	global := t.in.Global()
	if t.version > 5 && name == "_global" && global != nil {
		return ObjectValue(global), nil
	}
	if global != nil {
		if v, ok := global.GetMember(name); ok {
			return v, nil
		}
	}

	log.Debugf("reference to undefined variable %q", name)
	return Undefined(), nil
}

// setVariable assigns a variable reference.
func (t *Thread) setVariable(ref string, v Value) {
	if path, name, ok := parsePath(ref); ok {
		obj := t.findObject(path)
		if obj == nil {
			t.report(DiagScriptError, "cannot set %q: path %q does not resolve", ref, path)
			return
		}
		obj.SetMember(name, v)
		return
	}
	t.setVariableRaw(ref, v)
}

// setVariableRaw assigns a plain identifier to the innermost scope object
// that already has it, then an existing local (SWF5 and below), otherwise
// the current target.
func (t *Thread) setVariableRaw(name string, v Value) {
	for i := len(t.scope) - 1; i >= 0; i-- {
		obj := t.scope[i]
		if obj == nil {
			continue
		}
		if _, ok := obj.GetMember(name); ok {
			obj.SetMember(name, v)
			return
		}
	}

	if t.version < 6 {
		if locals := t.env.Locals(); locals != nil {
			if _, ok := locals.GetOwnMember(name); ok {
				locals.SetMember(name, v)
				return
			}
		}
	}

	if tgt := t.env.Target(); tgt != nil {
		tgt.SetMember(name, v)
		return
	}
	if global := t.in.Global(); global != nil {
		global.SetMember(name, v)
	}
}

// deleteVariable removes a variable from the first object that owns it.
func (t *Thread) deleteVariable(ref string) bool {
	if path, name, ok := parsePath(ref); ok {
		obj := t.findObject(path)
		if obj == nil {
			return false
		}
		return obj.DeleteMember(name)
	}

	for i := len(t.scope) - 1; i >= 0; i-- {
		if obj := t.scope[i]; obj != nil && hasOwn(obj, ref) {
			return obj.DeleteMember(ref)
		}
	}
	if locals := t.env.Locals(); locals != nil {
		if _, ok := locals.GetOwnMember(ref); ok {
			return locals.DeleteMember(ref)
		}
	}
	if tgt := t.env.Target(); tgt != nil && hasOwn(tgt, ref) {
		return tgt.DeleteMember(ref)
	}
	if global := t.in.Global(); global != nil {
		return global.DeleteMember(ref)
	}
	return false
}

// defineLocal assigns a local variable inside a closure. In timeline code
// it is an ordinary assignment.
func (t *Thread) defineLocal(name string, v Value) {
	if _, _, ok := parsePath(name); ok {
		t.setVariable(name, v)
		return
	}
	if locals := t.env.Locals(); locals != nil {
		locals.SetMember(name, v)
		return
	}
	t.setVariable(name, v)
}

// declareLocal declares a local without assigning it.
func (t *Thread) declareLocal(name string) {
	locals := t.env.Locals()
	if locals == nil {
		log.Debugf("'var %s' in timeline code has no effect", name)
		return
	}
	if _, ok := locals.GetOwnMember(name); !ok {
		locals.SetMember(name, Undefined())
	}
}

// hasOwn reports whether obj itself (not its prototypes) carries name.
func hasOwn(obj Object, name string) bool {
	if so, ok := obj.(interface {
		GetOwnMember(string) (Value, bool)
	}); ok {
		_, found := so.GetOwnMember(name)
		return found
	}
	_, found := obj.GetMember(name)
	return found
}
