package model

import (
	"context"
	"fmt"
)

// LeafIndex 叶子节点的子节点下标（与训练侧 tree_.children_left 的 -1 约定一致）
const LeafIndex = -1

// TreeNode 决策树节点。非叶子节点按 features[Feature] <= Threshold 走左子树，否则走右子树。
type TreeNode struct {
	Feature   int     `json:"feature" yaml:"feature"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Left      int     `json:"left" yaml:"left"`
	Right     int     `json:"right" yaml:"right"`
	Value     float64 `json:"value" yaml:"value"`
}

// IsLeaf 是否为叶子节点
func (n TreeNode) IsLeaf() bool {
	return n.Left == LeafIndex && n.Right == LeafIndex
}

// Tree 以节点数组表示的回归树，Nodes[0] 为根节点
type Tree struct {
	Nodes []TreeNode `json:"nodes" yaml:"nodes"`
}

// ForestModel 实现了随机森林回归 (Random Forest Regressor)。
//
// 预测原理：每棵树从根节点走到叶子节点得到一个值，最终输出所有树的算术平均值。
type ForestModel struct {
	Trees     []Tree
	NumInputs int // 期望的特征数
}

// NewForestModel 创建随机森林模型并校验树结构
func NewForestModel(trees []Tree, numInputs int) (*ForestModel, error) {
	m := &ForestModel{Trees: trees, NumInputs: numInputs}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ForestModel) Name() string { return "forest" }

// Validate 检查节点下标与特征下标是否越界。
// 子节点下标必须大于父节点下标，保证遍历一定终止。
func (m *ForestModel) Validate() error {
	if len(m.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for ti, tree := range m.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			if node.Feature < 0 || node.Feature >= m.NumInputs {
				return fmt.Errorf("tree %d node %d: feature index %d out of range [0,%d)", ti, ni, node.Feature, m.NumInputs)
			}
			for _, child := range []int{node.Left, node.Right} {
				if child <= ni || child >= len(tree.Nodes) {
					return fmt.Errorf("tree %d node %d: invalid child index %d", ti, ni, child)
				}
			}
		}
	}
	return nil
}

func (m *ForestModel) Predict(_ context.Context, features []float64) (float64, error) {
	if len(features) != m.NumInputs {
		return 0, fmt.Errorf("forest: expected %d features, got %d", m.NumInputs, len(features))
	}
	sum := 0.0
	for _, tree := range m.Trees {
		sum += tree.eval(features)
	}
	return sum / float64(len(m.Trees)), nil
}

func (t Tree) eval(features []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.IsLeaf() {
			return node.Value
		}
		if features[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}
