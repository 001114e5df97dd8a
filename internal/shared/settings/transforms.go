package settings

import (
	"tglink/internal/shared/types"
)

// ToggleEnabled sets Enabled verbatim.
func ToggleEnabled(value bool) Transform {
	return func(s types.ProxySettings) types.ProxySettings {
		s.Enabled = value
		return s
	}
}

// ToggleUseForCalls sets UseForCalls verbatim.
func ToggleUseForCalls(value bool) Transform {
	return func(s types.ProxySettings) types.ProxySettings {
		s.UseForCalls = value
		return s
	}
}

// ActivateServer makes server active and enables the proxy, provided it is in
// the list and not already active.
func ActivateServer(server types.ProxyServerConfig) Transform {
	return func(s types.ProxySettings) types.ProxySettings {
		if s.IsActive(server) || s.IndexOf(server) < 0 {
			return s
		}
		active := server
		s.ActiveServer = &active
		s.Enabled = true
		return s
	}
}

// RemoveServer deletes server by value. Removing the active server clears it
// and disables the proxy.
func RemoveServer(server types.ProxyServerConfig) Transform {
	return func(s types.ProxySettings) types.ProxySettings {
		i := s.IndexOf(server)
		if i < 0 {
			return s
		}
		s.Servers = append(s.Servers[:i], s.Servers[i+1:]...)
		if s.IsActive(server) {
			s.ActiveServer = nil
			s.Enabled = false
		}
		return s
	}
}

// AddServer appends server unless an equal one is already saved.
func AddServer(server types.ProxyServerConfig) Transform {
	return func(s types.ProxySettings) types.ProxySettings {
		if s.IndexOf(server) < 0 {
			s.Servers = append(s.Servers, server)
		}
		return s
	}
}

// InstallServer adds server and activates it, the action behind a proxy link.
func InstallServer(server types.ProxyServerConfig) Transform {
	add, activate := AddServer(server), ActivateServer(server)
	return func(s types.ProxySettings) types.ProxySettings {
		return activate(add(s))
	}
}

// ReplaceServer edits old in place. The active server follows the edit. If
// updated already exists elsewhere in the list, old is dropped instead.
func ReplaceServer(old, updated types.ProxyServerConfig) Transform {
	return func(s types.ProxySettings) types.ProxySettings {
		i := s.IndexOf(old)
		if i < 0 || old == updated {
			return s
		}
		wasActive := s.IsActive(old)
		if s.IndexOf(updated) >= 0 {
			s.Servers = append(s.Servers[:i], s.Servers[i+1:]...)
		} else {
			s.Servers[i] = updated
		}
		if wasActive {
			active := updated
			s.ActiveServer = &active
		}
		return s
	}
}

// DropTarget says where a dragged server was released. Reference is the
// server it was dropped onto; BeforeAll/AfterAll mark the list boundaries.
type DropTarget struct {
	Reference *types.ProxyServerConfig
	BeforeAll bool
	AfterAll  bool
}

// Reorder removes moved from its position and re-inserts it next to the
// reference: after it when moving forward (fromIndex < toIndex), before it
// when moving backward. Boundary targets insert at the head or tail. When
// the reference is no longer in the list the server goes to the tail.
//
// A server that is no longer saved is not re-added, and dropping a server
// onto itself changes nothing.
func Reorder(moved types.ProxyServerConfig, fromIndex, toIndex int, target DropTarget) Transform {
	return func(s types.ProxySettings) types.ProxySettings {
		i := s.IndexOf(moved)
		if i < 0 {
			return s
		}
		if target.Reference != nil && *target.Reference == moved {
			return s
		}
		s.Servers = append(s.Servers[:i], s.Servers[i+1:]...)

		switch {
		case target.Reference != nil:
			at := s.IndexOf(*target.Reference)
			if at < 0 {
				s.Servers = append(s.Servers, moved)
				break
			}
			if fromIndex < toIndex {
				at++
			}
			s.Servers = insertAt(s.Servers, at, moved)
		case target.BeforeAll:
			s.Servers = insertAt(s.Servers, 0, moved)
		default:
			s.Servers = append(s.Servers, moved)
		}
		return s
	}
}

// MoveServer resolves a drag from list position from to position to against
// the servers the user was looking at, then reorders. Positions outside the
// list mark the boundaries: to < 0 is before all, to >= len is after all.
func MoveServer(servers []types.ProxyServerConfig, from, to int) Transform {
	if from < 0 || from >= len(servers) || from == to {
		return func(s types.ProxySettings) types.ProxySettings { return s }
	}
	moved := servers[from]

	var target DropTarget
	switch {
	case to < 0:
		target.BeforeAll = true
	case to >= len(servers):
		target.AfterAll = true
	default:
		reference := servers[to]
		target.Reference = &reference
	}
	return Reorder(moved, from, to, target)
}

func insertAt(list []types.ProxyServerConfig, i int, v types.ProxyServerConfig) []types.ProxyServerConfig {
	list = append(list, types.ProxyServerConfig{})
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
