package vm

import "fmt"

// Property is an index into the legacy numbered property table used by
// GetProperty and SetProperty.
type Property int

const (
	PropX Property = iota
	PropY
	PropXScale
	PropYScale
	PropCurrentFrame
	PropTotalFrames
	PropAlpha
	PropVisible
	PropWidth
	PropHeight
	PropRotation
	PropTarget
	PropFramesLoaded
	PropName
	PropDropTarget
	PropURL
	PropHighQuality
	PropFocusRect
	PropSoundBufTime
	PropQuality
	PropXMouse
	PropYMouse
)

// propertyNames is fixed and version independent.
var propertyNames = [...]string{
	PropX:            "_x",
	PropY:            "_y",
	PropXScale:       "_xscale",
	PropYScale:       "_yscale",
	PropCurrentFrame: "_currentframe",
	PropTotalFrames:  "_totalframes",
	PropAlpha:        "_alpha",
	PropVisible:      "_visible",
	PropWidth:        "_width",
	PropHeight:       "_height",
	PropRotation:     "_rotation",
	PropTarget:       "_target",
	PropFramesLoaded: "_framesloaded",
	PropName:         "_name",
	PropDropTarget:   "_droptarget",
	PropURL:          "_url",
	PropHighQuality:  "_highquality",
	PropFocusRect:    "_focusrect",
	PropSoundBufTime: "_soundbuftime",
	PropQuality:      "_quality",
	PropXMouse:       "_xmouse",
	PropYMouse:       "_ymouse",
}

// PropertyCount is the number of legacy property slots.
const PropertyCount = len(propertyNames)

// Name returns the member name of the property, e.g. "_alpha".
func (p Property) Name() string {
	if p.Valid() {
		return propertyNames[p]
	}
	return ""
}

// Valid reports whether p is inside the table.
func (p Property) Valid() bool {
	return p >= 0 && int(p) < len(propertyNames)
}

func (p Property) String() string {
	if p.Valid() {
		return propertyNames[p]
	}
	return fmt.Sprintf("Property(%d)", int(p))
}

// PropertyByName returns the table index for a member name.
func PropertyByName(name string) (Property, bool) {
	for i, n := range propertyNames {
		if n == name {
			return Property(i), true
		}
	}
	return 0, false
}
