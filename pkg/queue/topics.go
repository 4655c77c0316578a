package queue

// 主题命名：mv.<域>.<动作>.
const (
	TopicObjectStored  = "mv.object.stored"  // 媒体文件写入成功（含伴随 JSON）
	TopicObjectDeleted = "mv.object.deleted" // 媒体文件被删除
	TopicObjectRenamed = "mv.object.renamed" // 占位文件迁移到新键
)

// ObjectTopics 触发列表缓存失效的主题.
var ObjectTopics = []string{TopicObjectStored, TopicObjectDeleted, TopicObjectRenamed}
