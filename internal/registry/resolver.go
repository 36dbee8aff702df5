package registry

// ResolveDependencies computes the ordered, deduplicated list of transitive
// dependencies of id, excluding id itself. Post-order depth-first traversal:
// every dependency appears before anything that depends on it. Within one
// service's own list the declared order is preserved; a dependency shared by
// several services is emitted once, at its first-required position.
func (r *Registry) ResolveDependencies(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visited := make(map[string]bool)
	var order []string

	var visit func(string)
	visit = func(current string) {
		if visited[current] {
			return
		}
		visited[current] = true
		for _, dep := range r.dependencies(current) {
			visit(dep)
		}
		order = append(order, current)
	}

	for _, dep := range r.dependencies(id) {
		visit(dep)
	}

	// id itself may have been pulled in through a cycle; it never belongs in
	// its own dependency list.
	out := order[:0]
	for _, s := range order {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}

// HasCircularDependency reports whether a dependency cycle is reachable from
// id. Classic DFS with a recursion stack: true the moment a back-edge into
// the current stack is found. Terminates on any finite manifest set,
// including self-referential services.
func (r *Registry) HasCircularDependency(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(string) bool
	visit = func(current string) bool {
		visited[current] = true
		onStack[current] = true
		for _, dep := range r.dependencies(current) {
			if onStack[dep] {
				return true
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}
		onStack[current] = false
		return false
	}

	return visit(id)
}
