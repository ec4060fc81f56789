package allocator

import "github.com/timandy/routine"

// debugAffinity is unset in production builds; set it in _test.go files
// (via an init or TestMain) to turn on the goroutine-affinity guard.
// Left false by default so the hot allocate/deallocate path never pays
// for goroutine-local lookups unless a caller opts in.
var debugAffinity = false

// affinityGuard records (or, once recorded, checks) which goroutine is
// allowed to call into an allocator and its composed children. spec.md
// §5 requires that composed allocators "execute on the same logical
// thread" and notes "enforcement is by convention" — Go can observe
// goroutine identity, so this turns the convention into an actual check
// when debugAffinity is enabled.
type affinityGuard struct {
	owner int64
	bound bool
}

func (g *affinityGuard) check() {
	if !debugAffinity {
		return
	}

	id := routine.Goid()

	if !g.bound {
		g.owner = id
		g.bound = true

		return
	}

	if g.owner != id {
		panic("salloc: allocator accessed from a different goroutine than it was bound to")
	}
}
