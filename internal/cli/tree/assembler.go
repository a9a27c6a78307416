// Package tree восстанавливает лес групп из плоского списка строк
// (id, parent_id), не полагаясь на порядок следования записей.
package tree

import "PassVault/internal/cli/model"

type node struct {
	depth int
	group *model.Group
}

// Assembler собирает упорядоченный по глубине лес: сначала все корни,
// затем все их дети и так далее. Внутри уровня сохраняется порядок вставки.
//
// Потомок, пришедший раньше родителя, не считается корнем: он откладывается
// и получает глубину в момент появления родителя. Если родитель так и не
// появился, Snapshot выдаёт такого сироту после всех размещённых уровней.
type Assembler struct {
	container map[int64]*node
	levels    [][]int64

	// сироты в порядке вставки: ждут появления родителя
	pending       []*model.Group
	pendingByPar  map[int64][]int // индексы в pending по id родителя
	pendingPlaced []bool
	seen          map[int64]struct{}
}

// NewAssembler возвращает пустой сборщик.
func NewAssembler() *Assembler {
	return &Assembler{
		container:    map[int64]*node{},
		pendingByPar: map[int64][]int{},
		seen:         map[int64]struct{}{},
	}
}

// Insert добавляет группу. Возвращает false для нулевого или повторного id;
// такой вызов ничего не меняет, вызывающий может продолжать.
func (a *Assembler) Insert(g *model.Group) bool {
	if g == nil || g.ID == 0 {
		return false
	}
	if _, dup := a.seen[g.ID]; dup {
		return false
	}
	a.seen[g.ID] = struct{}{}

	if g.ParentID == 0 {
		a.place(g, 0)
		return true
	}
	if parent, ok := a.container[g.ParentID]; ok {
		a.place(g, parent.depth+1)
		return true
	}
	// родитель ещё не встречался: откладываем до его появления
	a.pending = append(a.pending, g)
	a.pendingPlaced = append(a.pendingPlaced, false)
	a.pendingByPar[g.ParentID] = append(a.pendingByPar[g.ParentID], len(a.pending)-1)
	return true
}

// place размещает группу на уровне depth и рекурсивно пристраивает сирот,
// ждавших её как родителя.
func (a *Assembler) place(g *model.Group, depth int) {
	for len(a.levels) <= depth {
		a.levels = append(a.levels, nil)
	}
	a.levels[depth] = append(a.levels[depth], g.ID)
	a.container[g.ID] = &node{depth: depth, group: g}

	for _, idx := range a.pendingByPar[g.ID] {
		if a.pendingPlaced[idx] {
			continue
		}
		a.pendingPlaced[idx] = true
		a.place(a.pending[idx], depth+1)
	}
	delete(a.pendingByPar, g.ID)
}

// Size возвращает число размещённых групп (без ожидающих сирот).
func (a *Assembler) Size() int {
	return len(a.container)
}

// Snapshot возвращает группы в порядке обхода по уровням. Сироты, родитель
// которых так и не появился, идут после всех уровней в порядке вставки.
// Вызов не разрушает состояние и может повторяться.
func (a *Assembler) Snapshot() []*model.Group {
	out := make([]*model.Group, 0, len(a.container)+len(a.pending))
	for _, level := range a.levels {
		for _, id := range level {
			out = append(out, a.container[id].group)
		}
	}
	for i, g := range a.pending {
		if !a.pendingPlaced[i] {
			out = append(out, g)
		}
	}
	return out
}

// Depth возвращает глубину размещённой группы; ok=false, если id не размещён.
func (a *Assembler) Depth(id int64) (int, bool) {
	n, ok := a.container[id]
	if !ok {
		return 0, false
	}
	return n.depth, true
}
