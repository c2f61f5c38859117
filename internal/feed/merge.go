package feed

import (
	"sort"
	"time"
)

// Merge 将新抓取的条目合并进已有历史，返回渲染顺序的结果集。
// 返回值同时是下一次持久化的历史：历史大小因此被 maxItems 约束。
//
// 规则：
//   - 身份（GUID）已在历史中的新条目视为已见：标题、正文等内容字段刷新，
//     FirstSeen 保持首次捕获值不变；
//   - 身份未见过的条目加入，FirstSeen = now；
//   - 排序：Published 降序，无 Published 的排在有值的之后，
//     相同时按 FirstSeen 降序，再相同保持原有发现顺序（稳定排序）；
//   - maxItems > 0 时结果截断到 maxItems。
func Merge(fresh, history []Entry, now time.Time, maxItems int) []Entry {
	merged := make([]Entry, len(history))
	copy(merged, history)

	index := make(map[string]int, len(merged))
	for i, e := range merged {
		index[e.GUID()] = i
	}

	for _, f := range fresh {
		guid := f.GUID()
		if i, ok := index[guid]; ok {
			// 重新抓取时内容可能有细微变化，刷新内容字段
			old := merged[i]
			f.FirstSeen = old.FirstSeen
			if f.Published.IsZero() {
				f.Published = old.Published
			}
			merged[i] = f
			continue
		}
		f.FirstSeen = now
		index[guid] = len(merged)
		merged = append(merged, f)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return entryBefore(merged[i], merged[j])
	})

	if maxItems > 0 && len(merged) > maxItems {
		merged = merged[:maxItems]
	}
	return merged
}

// entryBefore 判断 a 是否应排在 b 之前（新的在前）。
func entryBefore(a, b Entry) bool {
	switch {
	case !a.Published.IsZero() && !b.Published.IsZero():
		if !a.Published.Equal(b.Published) {
			return a.Published.After(b.Published)
		}
	case a.Published.IsZero() && !b.Published.IsZero():
		return false
	case !a.Published.IsZero() && b.Published.IsZero():
		return true
	}
	if !a.FirstSeen.Equal(b.FirstSeen) {
		return a.FirstSeen.After(b.FirstSeen)
	}
	return false
}
