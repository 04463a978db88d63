package cpm

import "github.com/kilianp07/crunch/core/model"

// ForwardPass computes early start and finish for every node from the
// working durations and relationship lags. Tasks without predecessors start
// at day 0 and no task starts before day 0. It returns the project end.
func (n *Network) ForwardPass() int {
	end := 0
	for _, i := range n.order {
		node := &n.Nodes[i]
		es := 0
		for _, p := range n.preds[i] {
			pred := &n.Nodes[p.node]
			var c int
			switch p.typ {
			case model.StartStart:
				c = pred.ES + p.lag
			case model.FinishFinish:
				c = pred.EF + p.lag - node.Days
			case model.StartFinish:
				c = pred.ES + p.lag - node.Days
			default:
				c = pred.EF + p.lag
			}
			if c > es {
				es = c
			}
		}
		node.ES = es
		node.EF = es + node.Days
		if node.EF > end {
			end = node.EF
		}
	}
	return end
}

// BackwardPass computes late dates, total float and criticality in reverse
// topological order. Finish-based links (FS, FF) tighten the late finish;
// start-based links (SS, SF) tighten the late start afterwards, only when
// tighter. It returns projectEnd unchanged.
func (n *Network) BackwardPass(projectEnd int) int {
	for k := len(n.order) - 1; k >= 0; k-- {
		i := n.order[k]
		node := &n.Nodes[i]
		lf := projectEnd
		for _, s := range n.succs[i] {
			succ := &n.Nodes[s.node]
			switch s.typ {
			case model.FinishStart:
				lf = min(lf, succ.LS-s.lag)
			case model.FinishFinish:
				lf = min(lf, succ.LF-s.lag)
			}
		}
		ls := lf - node.Days
		for _, s := range n.succs[i] {
			succ := &n.Nodes[s.node]
			switch s.typ {
			case model.StartStart:
				ls = min(ls, succ.LS-s.lag)
			case model.StartFinish:
				ls = min(ls, succ.LF-s.lag)
			}
		}
		node.LF = min(lf, ls+node.Days)
		node.LS = ls
		node.Float = node.LS - node.ES
		node.IsCritical = node.Float <= 0
	}
	return projectEnd
}

// Analyze runs the forward and backward passes and returns the project end.
func (n *Network) Analyze() int {
	return n.BackwardPass(n.ForwardPass())
}
