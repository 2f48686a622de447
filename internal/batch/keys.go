package batch

import "strconv"

// UniqueKey 返回 name 在 used 中尚未出现的键并登记。重名时依次尝试 name#2、name#3…，
// 跳过已被占用的键（包括本身就叫 a#2 的文件名）
func UniqueKey(used map[string]bool, name string) string {
	key := name
	for n := 2; used[key]; n++ {
		key = name + "#" + strconv.Itoa(n)
	}
	used[key] = true
	return key
}
