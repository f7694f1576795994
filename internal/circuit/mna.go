package circuit

import "github.com/san-kum/circuitsim/internal/linalg"

// Ground is the index of the reference node. Stamps touching it are dropped.
const Ground = -1

func stampMatrix(g *linalg.Matrix, row, col int, v float64) {
	if row == Ground || col == Ground {
		return
	}
	g.Add(row, col, v)
}

func stampRHS(b *linalg.Vector, row int, v float64) {
	if row == Ground {
		return
	}
	b.Add(row, v)
}

// stampConductance adds admittance y between nodes p and q.
func stampConductance(g *linalg.Matrix, p, q int, y float64) {
	stampMatrix(g, p, p, y)
	stampMatrix(g, q, q, y)
	stampMatrix(g, p, q, -y)
	stampMatrix(g, q, p, -y)
}

// stampCurrent injects current i into node p, drawn from node q.
func stampCurrent(b *linalg.Vector, p, q int, i float64) {
	stampRHS(b, p, i)
	stampRHS(b, q, -i)
}

// stampBranch couples branch current k, flowing from p to q, into the KCL
// rows and adds the branch voltage v_p - v_q to row k.
func stampBranch(g *linalg.Matrix, p, q, k int) {
	stampMatrix(g, p, k, 1)
	stampMatrix(g, q, k, -1)
	stampMatrix(g, k, p, 1)
	stampMatrix(g, k, q, -1)
}

func voltageAcross(x *linalg.Vector, p, q int) float64 {
	v := 0.0
	if p != Ground {
		v += x.At(p)
	}
	if q != Ground {
		v -= x.At(q)
	}
	return v
}
