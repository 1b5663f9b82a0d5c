package dto

// DiskStatus 磁盘容量（GiB，保留两位小数的字符串）
type DiskStatus struct {
	TotalGB string `json:"total_gb" example:"456.39"`
	UsedGB  string `json:"used_gb" example:"123.45"`
	FreeGB  string `json:"free_gb" example:"332.94"`
}

// AdminStatusResponse 管理状态响应
type AdminStatusResponse struct {
	Disk       DiskStatus        `json:"disk"`
	DataDirsMB map[string]string `json:"data_dirs_mb"`
	ActiveRuns int               `json:"active_runs"`
}
