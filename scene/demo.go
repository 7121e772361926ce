package scene

// Demo builds the scene used by the command line tool:
//
//	root [Model]
//	├── lamp [Light]
//	└── camera
func Demo() *Entity {
	root := NewEntity("root", &Model{Mesh: "floor", Tint: [4]float32{1, 1, 1, 1}})
	lamp := root.AddChild(NewEntity("lamp", &Light{Intensity: 1, Color: [3]float32{1, 1, 1}, Enabled: true}))
	lamp.Transform.Position = Vec3{0, 3, 0}
	camera := root.AddChild(NewEntity("camera"))
	camera.Transform.Position = Vec3{0, 1.5, -5}
	return root
}
