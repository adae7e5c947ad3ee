package http

import (
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/ports"
)

func memoryArchive() ports.RunStore {
	return memory.NewStore()
}
