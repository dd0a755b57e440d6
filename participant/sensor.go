package participant

import (
	"sort"

	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/solarlune/resolv"
)

// resolv tags
const (
	tagSelf   = "self"
	tagAvatar = "avatar"
	tagPickup = "pickup"
)

// ContactKind says what the local avatar touched.
type ContactKind int

const (
	ContactPickup ContactKind = iota
	ContactAvatar
)

func (k ContactKind) String() string {
	switch k {
	case ContactPickup:
		return "pickup"
	case ContactAvatar:
		return "avatar"
	default:
		return "unknown"
	}
}

// Contact is a contact-enter event for the local avatar.
type Contact struct {
	Kind     ContactKind
	ID       uint
	Position gamemath.Vec3 // centre of the other object
}

type contactKey struct {
	kind ContactKind
	id   uint
}

// Sensor tracks the local avatar against pickups and other avatars on a
// resolv space and reports each contact once, when it begins.
type Sensor struct {
	space    *resolv.Space
	self     *resolv.Object
	pickups  map[uint]*resolv.Object
	avatars  map[uint]*resolv.Object
	touching map[contactKey]bool
}

func NewSensor(width, height int) *Sensor {
	space := resolv.NewSpace(width, height, 16, 16)

	size := netconfig.AvatarSize
	self := resolv.NewObject(0, 0, size, size, tagSelf)
	self.SetShape(resolv.NewRectangle(0, 0, size, size))
	space.Add(self)

	return &Sensor{
		space:    space,
		self:     self,
		pickups:  make(map[uint]*resolv.Object),
		avatars:  make(map[uint]*resolv.Object),
		touching: make(map[contactKey]bool),
	}
}

// AddPickup places a pickup. Adding a known id moves it.
func (s *Sensor) AddPickup(id uint, pos gamemath.Vec3) {
	s.place(s.pickups, id, pos, netconfig.PickupSize, tagPickup)
}

func (s *Sensor) RemovePickup(id uint) {
	s.remove(s.pickups, ContactPickup, id)
}

// SetAvatar places or moves another player's avatar.
func (s *Sensor) SetAvatar(id uint, pos gamemath.Vec3) {
	s.place(s.avatars, id, pos, netconfig.AvatarSize, tagAvatar)
}

func (s *Sensor) RemoveAvatar(id uint) {
	s.remove(s.avatars, ContactAvatar, id)
}

func (s *Sensor) place(objs map[uint]*resolv.Object, id uint, pos gamemath.Vec3, size float64, tag string) {
	obj, ok := objs[id]
	if !ok {
		obj = resolv.NewObject(0, 0, size, size, tag)
		obj.SetShape(resolv.NewRectangle(0, 0, size, size))
		obj.Data = id
		objs[id] = obj
		s.space.Add(obj)
	}
	obj.X = pos.X - size/2
	obj.Y = pos.Z - size/2
	obj.Update()
}

func (s *Sensor) remove(objs map[uint]*resolv.Object, kind ContactKind, id uint) {
	obj, ok := objs[id]
	if !ok {
		return
	}
	s.space.Remove(obj)
	delete(objs, id)
	delete(s.touching, contactKey{kind, id})
}

// Update moves the local avatar to pos and returns the contacts that began
// since the previous call.
func (s *Sensor) Update(pos gamemath.Vec3) []Contact {
	s.self.X = pos.X - s.self.W/2
	s.self.Y = pos.Z - s.self.H/2
	s.self.Update()

	now := make(map[contactKey]bool)
	var entered []Contact

	if check := s.self.Check(0, 0, tagPickup, tagAvatar); check != nil {
		for _, obj := range check.Objects {
			if !overlaps(s.self, obj) {
				continue
			}
			id, ok := obj.Data.(uint)
			if !ok {
				continue
			}

			kind := ContactAvatar
			if obj.HasTags(tagPickup) {
				kind = ContactPickup
			}
			key := contactKey{kind, id}
			if now[key] {
				continue
			}
			now[key] = true

			if !s.touching[key] {
				entered = append(entered, Contact{
					Kind:     kind,
					ID:       id,
					Position: gamemath.Vec3{X: obj.X + obj.W/2, Z: obj.Y + obj.H/2},
				})
			}
		}
	}

	sort.Slice(entered, func(i, j int) bool {
		if entered[i].Kind != entered[j].Kind {
			return entered[i].Kind < entered[j].Kind
		}
		return entered[i].ID < entered[j].ID
	})

	s.touching = now
	return entered
}

// overlaps is the exact test after resolv's cell broadphase.
func overlaps(a, b *resolv.Object) bool {
	return a.X < b.X+b.W && b.X < a.X+a.W && a.Y < b.Y+b.H && b.Y < a.Y+a.H
}
